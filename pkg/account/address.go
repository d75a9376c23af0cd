package account

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/risingsealabs/saline-sdk/pkg/bls"
)

// AddressPrefix is the default network marker for Saline addresses.
const AddressPrefix = "nacl"

// addressPattern matches a prefixed address: marker, colon, and the hex
// encoding of a 48-byte compressed public key.
var addressPattern = regexp.MustCompile(`^[a-z][a-z0-9]*:[0-9a-f]{96}$`)

// Address formats a public key as a network address under the default
// prefix.
func Address(pk *bls.PublicKey) string {
	return FormatAddress(AddressPrefix, pk)
}

// FormatAddress formats a public key as "<prefix>:<pubkey hex>".
func FormatAddress(prefix string, pk *bls.PublicKey) string {
	return prefix + ":" + hex.EncodeToString(pk.Bytes())
}

// ParseAddress extracts the public key from an address, rejecting bad
// prefixes, truncated keys, or non-hex payloads.
func ParseAddress(address string) (*bls.PublicKey, error) {
	if !addressPattern.MatchString(address) {
		return nil, fmt.Errorf("malformed address %q", address)
	}
	raw, err := hex.DecodeString(address[len(address)-2*bls.PublicKeySize:])
	if err != nil {
		return nil, fmt.Errorf("malformed address %q: %w", address, err)
	}
	pk, err := bls.PublicKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", address, err)
	}
	return pk, nil
}
