// Package keygen implements hierarchical deterministic key derivation for
// BLS12-381 signing keys (EIP-2333): HKDF_mod_r master-key derivation,
// Lamport-stretched child-key derivation, and slash-delimited path
// resolution.
package keygen

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Extract runs HKDF-Extract (RFC 5869) with SHA-256. An empty salt is
// replaced by a zero salt of the hash's output length.
func Extract(salt, ikm []byte) []byte {
	if len(salt) == 0 {
		salt = nil // x/crypto substitutes a zero-filled salt
	}
	return hkdf.Extract(sha256.New, ikm, salt)
}

// Expand runs HKDF-Expand (RFC 5869) with SHA-256. The output length must
// fit in 255 chaining blocks (8160 bytes for SHA-256).
func Expand(prk, info []byte, length int) ([]byte, error) {
	okm := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), okm); err != nil {
		return nil, fmt.Errorf("hkdf expand to %d bytes: %w", length, err)
	}
	return okm, nil
}
