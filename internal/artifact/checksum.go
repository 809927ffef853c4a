package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Checksum computes the SHA-256 hex digest and byte count of a stream.
func Checksum(r io.Reader) (string, int64, error) {
	hash := sha256.New()
	n, err := io.Copy(hash, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), n, nil
}

// ChecksumData computes the SHA-256 hex digest of a byte slice.
func ChecksumData(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// StoreChecksum computes the checksum and size of a stored artifact.
func StoreChecksum(ctx context.Context, store Store, name string) (string, int64, error) {
	rc, err := store.Get(ctx, name)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()
	return Checksum(rc)
}

// NewHashReader wraps r so that everything read from it is also hashed.
func NewHashReader(r io.Reader) *HashReader {
	return &HashReader{r: r, hash: sha256.New()}
}

// HashReader hashes and counts bytes as they pass through.
type HashReader struct {
	r    io.Reader
	hash interface {
		io.Writer
		Sum([]byte) []byte
	}
	n int64
}

func (hr *HashReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.hash.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of everything read so far.
func (hr *HashReader) Sum() string {
	return hex.EncodeToString(hr.hash.Sum(nil))
}

// Count returns the number of bytes read so far.
func (hr *HashReader) Count() int64 {
	return hr.n
}
