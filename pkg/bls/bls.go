// Package bls wraps the blst pairing library with the signature operations
// used to authorize Saline transactions: deterministic signing over raw
// message bytes, total verification, and signature aggregation with a
// same-message fast path.
//
// Keys and signatures follow the IETF BLS basic scheme on BLS12-381:
// public keys are 48-byte compressed G1 points, signatures 96-byte
// compressed G2 points.
package bls

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// Serialized sizes in bytes.
const (
	PrivateKeySize = 32
	PublicKeySize  = 48
	SignatureSize  = 96
)

// DomainTag is the domain separation tag of the basic signature scheme.
// Signer and verifier ecosystems must agree on it byte for byte.
const DomainTag = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_"

var dst = []byte(DomainTag)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrNoSignatures      = errors.New("no signatures to aggregate")
)

// PrivateKey is a non-zero scalar below the BLS12-381 group order.
type PrivateKey struct {
	sk *blst.SecretKey
}

// GenerateKey creates a private key from fresh system entropy.
func GenerateKey() (*PrivateKey, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	sk := blst.KeyGen(ikm[:])
	if sk == nil {
		return nil, fmt.Errorf("%w: key generation failed", ErrInvalidPrivateKey)
	}
	return &PrivateKey{sk: sk}, nil
}

// PrivateKeyFromBytes parses a 32-byte big-endian scalar. The scalar must
// be non-zero and below the group order.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeySize, len(b))
	}
	sk := new(blst.SecretKey).Deserialize(b)
	if sk == nil {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return &PrivateKey{sk: sk}, nil
}

// Bytes returns the 32-byte big-endian scalar.
func (k *PrivateKey) Bytes() []byte {
	return k.sk.Serialize()
}

// PublicKey returns pk = sk * G1.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{p: new(blst.P1Affine).From(k.sk)}
}

// Sign signs the raw message bytes under the fixed domain tag. Hashing to
// the curve happens inside the signing primitive; callers must not pre-hash.
// Output is deterministic for a given key and message.
func (k *PrivateKey) Sign(message []byte) *Signature {
	return &Signature{p: new(blst.P2Affine).Sign(k.sk, message, dst)}
}

// Zero wipes the private scalar from memory.
func (k *PrivateKey) Zero() {
	k.sk.Zeroize()
}

// PublicKey is a compressed point in the short group G1.
type PublicKey struct {
	p *blst.P1Affine
}

// PublicKeyFromBytes parses a 48-byte compressed G1 point and checks group
// membership.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(b))
	}
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil || !p.KeyValidate() {
		return nil, fmt.Errorf("%w: not a valid group element", ErrInvalidPublicKey)
	}
	return &PublicKey{p: p}, nil
}

// Bytes returns the 48-byte compressed encoding.
func (k *PublicKey) Bytes() []byte {
	return k.p.Compress()
}

// Signature is a compressed point in the long group G2. An aggregate
// signature uses the same representation; it carries no record of which
// keys or messages contributed.
type Signature struct {
	p *blst.P2Affine
}

// SignatureFromBytes parses a 96-byte compressed G2 point and checks group
// membership.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidSignature, SignatureSize, len(b))
	}
	p := new(blst.P2Affine).Uncompress(b)
	if p == nil || !p.SigValidate(false) {
		return nil, fmt.Errorf("%w: not a valid group element", ErrInvalidSignature)
	}
	return &Signature{p: p}, nil
}

// Bytes returns the 96-byte compressed encoding.
func (s *Signature) Bytes() []byte {
	return s.p.Compress()
}

// Verify reports whether signature is a valid signature of message under
// publicKey. Wrong-length or undecodable inputs verify as false; the check
// is total and never panics.
func Verify(publicKey, message, signature []byte) bool {
	pk, err := PublicKeyFromBytes(publicKey)
	if err != nil {
		return false
	}
	sig, err := SignatureFromBytes(signature)
	if err != nil {
		return false
	}
	return sig.p.Verify(false, pk.p, false, message, dst)
}

// Aggregate sums signatures in G2. The sum is commutative and associative,
// so the result does not depend on input order. Aggregating zero signatures
// or an undecodable component is an error: a partial aggregate would be
// meaningless.
func Aggregate(signatures [][]byte) ([]byte, error) {
	if len(signatures) == 0 {
		return nil, ErrNoSignatures
	}
	points := make([]*blst.P2Affine, len(signatures))
	for i, raw := range signatures {
		sig, err := SignatureFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		points[i] = sig.p
	}

	var agg blst.P2Aggregate
	if !agg.Aggregate(points, false) {
		return nil, fmt.Errorf("%w: aggregation failed", ErrInvalidSignature)
	}
	return agg.ToAffine().Compress(), nil
}

// VerifyAggregate checks an aggregate signature against parallel message
// and public key lists. Mismatched or empty lists and undecodable inputs
// fail closed. When every message is byte-identical the public keys are
// summed and a single pairing check runs; this is the expected path for
// multi-signer authorization of one transaction.
func VerifyAggregate(signature []byte, messages [][]byte, publicKeys [][]byte) bool {
	if len(messages) == 0 || len(messages) != len(publicKeys) {
		return false
	}
	sig, err := SignatureFromBytes(signature)
	if err != nil {
		return false
	}
	pks := make([]*blst.P1Affine, len(publicKeys))
	for i, raw := range publicKeys {
		pk, err := PublicKeyFromBytes(raw)
		if err != nil {
			return false
		}
		pks[i] = pk.p
	}

	if sameMessage(messages) {
		return verifySummed(sig, pks, messages[0])
	}
	return verifyPairwise(sig, pks, messages)
}

// sameMessage reports whether every message is byte-identical.
func sameMessage(messages [][]byte) bool {
	for _, m := range messages[1:] {
		if !bytes.Equal(m, messages[0]) {
			return false
		}
	}
	return true
}

// verifySummed sums the public keys and runs one pairing check. A single
// (key, message) pair degenerates to a plain verification.
func verifySummed(sig *Signature, pks []*blst.P1Affine, message []byte) bool {
	return sig.p.FastAggregateVerify(false, pks, message, dst)
}

// verifyPairwise runs the general aggregate check over (key, message) pairs.
func verifyPairwise(sig *Signature, pks []*blst.P1Affine, messages [][]byte) bool {
	msgs := make([]blst.Message, len(messages))
	for i, m := range messages {
		msgs[i] = m
	}
	return sig.p.AggregateVerify(false, pks, false, msgs, dst)
}
