package account

import (
	"fmt"

	"github.com/risingsealabs/saline-sdk/pkg/bls"
)

// Signer is the capability needed to authorize an operation: expose a
// public key and sign raw bytes with its private counterpart.
type Signer interface {
	PublicKey() *bls.PublicKey
	Sign(message []byte) *bls.Signature
}

// Subaccount is a single derived key pair. It is immutable once created
// and cannot be re-derived without the owning account's seed.
type Subaccount struct {
	sk    *bls.PrivateKey
	pk    *bls.PublicKey
	path  string
	label string
}

var _ Signer = (*Subaccount)(nil)

// NewSubaccount wraps a 32-byte private key. The public key is derived
// once and cached.
func NewSubaccount(privateKey []byte, path, label string) (*Subaccount, error) {
	sk, err := bls.PrivateKeyFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("subaccount %q: %w", label, err)
	}
	return &Subaccount{
		sk:    sk,
		pk:    sk.PublicKey(),
		path:  path,
		label: label,
	}, nil
}

// PublicKey returns the cached public key.
func (s *Subaccount) PublicKey() *bls.PublicKey {
	return s.pk
}

// Sign signs the raw message bytes with this subaccount's private key.
func (s *Subaccount) Sign(message []byte) *bls.Signature {
	return s.sk.Sign(message)
}

// Label returns the registry label, which may be empty.
func (s *Subaccount) Label() string {
	return s.label
}

// Path returns the derivation path that produced this subaccount.
func (s *Subaccount) Path() string {
	return s.path
}

// Address returns the subaccount's network address.
func (s *Subaccount) Address() string {
	return Address(s.pk)
}

// String renders the subaccount without exposing private material.
func (s *Subaccount) String() string {
	hexPK := s.PublicKeyHex()
	short := hexPK[:8] + "..." + hexPK[len(hexPK)-8:]
	if s.label != "" {
		return fmt.Sprintf("subaccount %q (%s)", s.label, short)
	}
	return fmt.Sprintf("subaccount %s", short)
}

// PublicKeyHex returns the hex encoding of the compressed public key.
func (s *Subaccount) PublicKeyHex() string {
	return fmt.Sprintf("%x", s.pk.Bytes())
}
