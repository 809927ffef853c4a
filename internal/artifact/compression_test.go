package artifact

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("INSERT INTO accounts VALUES (42, 'aurora');\n", 200))

	for _, codec := range []Codec{CodecNone, CodecGzip, CodecZstd, CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			var compressed bytes.Buffer
			w, err := CompressWriter(&compressed, codec)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if codec != CodecNone {
				assert.Less(t, compressed.Len(), len(payload))
			}

			r, err := DecompressReader(bytes.NewReader(compressed.Bytes()), codec)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestCodec_Ext(t *testing.T) {
	tests := []struct {
		codec Codec
		want  string
	}{
		{CodecNone, ""},
		{CodecGzip, ".gz"},
		{CodecZstd, ".zst"},
		{CodecLZ4, ".lz4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.codec.Ext())
	}
}

func TestCodecForName(t *testing.T) {
	tests := []struct {
		name string
		want Codec
	}{
		{"backup_full_2026-01-01T00-00-00Z.sql.gz", CodecGzip},
		{"backup_full_2026-01-01T00-00-00Z.sql.zst", CodecZstd},
		{"backup_full_2026-01-01T00-00-00Z.sql.lz4", CodecLZ4},
		{"backup_full_2026-01-01T00-00-00Z.sql", CodecNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodecForName(tt.name), tt.name)
	}
}

func TestCodec_IsValid(t *testing.T) {
	assert.True(t, CodecGzip.IsValid())
	assert.True(t, Codec("").IsValid())
	assert.False(t, Codec("brotli").IsValid())
}

func TestCompressWriter_UnknownCodec(t *testing.T) {
	_, err := CompressWriter(&bytes.Buffer{}, Codec("brotli"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression codec")
}
