// Package checksum computes the content fingerprints used for change
// detection and optimistic concurrency on documents.
package checksum

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/xxh3"
)

// Sum returns the hex-encoded 128-bit xxh3 digest of data.
func Sum(data []byte) string {
	b := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(b[:])
}

// Reader digests everything readable from r.
func Reader(r io.Reader) (string, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	b := h.Sum128().Bytes()
	return hex.EncodeToString(b[:]), nil
}

// Match reports whether data still has the given digest.
func Match(data []byte, sum string) bool {
	return Sum(data) == sum
}
