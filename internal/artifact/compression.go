package artifact

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression applied to an artifact stream.
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// IsValid reports whether the codec is supported.
func (c Codec) IsValid() bool {
	switch c {
	case CodecNone, CodecGzip, CodecZstd, CodecLZ4, "":
		return true
	default:
		return false
	}
}

// Ext returns the filename extension the codec appends to an artifact.
func (c Codec) Ext() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// CodecForName detects the codec of an artifact from its filename.
func CodecForName(name string) Codec {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CodecGzip
	case strings.HasSuffix(name, ".zst"):
		return CodecZstd
	case strings.HasSuffix(name, ".lz4"):
		return CodecLZ4
	default:
		return CodecNone
	}
}

// CompressWriter wraps w so that writes are compressed with the codec. The
// returned writer must be closed to flush trailing blocks.
func CompressWriter(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecNone, "":
		return nopWriteCloser{w}, nil
	case CodecGzip:
		return gzip.NewWriter(w), nil
	case CodecZstd:
		return zstd.NewWriter(w)
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// DecompressReader wraps r so that reads are decompressed with the codec.
func DecompressReader(r io.Reader, codec Codec) (io.ReadCloser, error) {
	switch codec {
	case CodecNone, "":
		return io.NopCloser(r), nil
	case CodecGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gr, nil
	case CodecZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
