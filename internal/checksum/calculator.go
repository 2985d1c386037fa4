package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Calculator computes content fingerprints for source files.
type Calculator interface {
	// Calculate computes the hex-encoded digest of everything in r.
	Calculate(r io.Reader) (string, error)
}

// SHA256 implements Calculator using SHA-256.
//
// SHA256 is a zero-size type and is safe for concurrent use by multiple
// goroutines.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

// Calculate streams r through SHA-256 and returns the hex-encoded digest.
// The digest covers the exact bytes, so files that parse to identical rows
// but differ in encoding or quoting fingerprint differently.
func (SHA256) Calculate(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateBytes computes the digest of in-memory content.
func (SHA256) CalculateBytes(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Verify interface compliance at compile time
var _ Calculator = SHA256{}
