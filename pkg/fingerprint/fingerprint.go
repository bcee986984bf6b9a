// Package fingerprint computes content-addressed identifiers used for
// duplicate detection. A fingerprint is the lowercase hex SHA-256 digest of
// the content, so identical bytes always map to the same identifier no matter
// who submitted them.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// ChunkSize is the read size used when hashing streams. Memory use stays
// bounded regardless of file size.
const ChunkSize = 4096

// HexLen is the length of every fingerprint string.
const HexLen = sha256.Size * 2

// Text returns the fingerprint of the UTF-8 encoding of text.
func Text(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Reader hashes r in ChunkSize reads. The result is identical to hashing the
// whole byte sequence at once.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Opener yields a fresh stream over stored content.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// File opens src and hashes its content.
func File(src Opener) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open content: %w", err)
	}
	defer rc.Close()
	return Reader(rc)
}

// Pair holds the fingerprints of one submission. FileHash is empty when no
// file was attached.
type Pair struct {
	TextHash string
	FileHash string
}

// HasFile reports whether the pair carries a file fingerprint.
func (p Pair) HasFile() bool {
	return p.FileHash != ""
}

// Valid reports whether s looks like a fingerprint produced by this package.
func Valid(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
