package keygen

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
)

// KeySize is the length of a serialized private key scalar in bytes.
const KeySize = 32

// hkdfSalt is the initial HKDF salt mandated by the BLS key generation
// standard.
const hkdfSalt = "BLS-SIG-KEYGEN-SALT-"

// lamportChunks is the number of 32-byte blocks in one Lamport ladder.
const lamportChunks = 255

// okmInfo is I2OSP(48, 2), the HKDF info tag requesting 48 output bytes.
var okmInfo = []byte{0x00, 0x30}

// curveOrder is r, the order of the BLS12-381 scalar field.
var curveOrder, _ = new(big.Int).SetString(
	"73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)

// ErrEmptySeed is returned when derivation is attempted with no seed bytes.
var ErrEmptySeed = errors.New("empty seed")

// Deriver derives keys while reporting progress as structured debug events
// on an injected logger. The zero value derives silently.
type Deriver struct {
	log zerolog.Logger
}

// NewDeriver returns a Deriver that emits debug events to logger.
func NewDeriver(logger zerolog.Logger) *Deriver {
	return &Deriver{log: logger}
}

var silent = &Deriver{log: zerolog.Nop()}

// Master derives the master secret key from a seed.
func Master(seed []byte) ([]byte, error) { return silent.Master(seed) }

// Child derives the child key of parentSK at index.
func Child(parentSK []byte, index uint32) ([]byte, error) { return silent.Child(parentSK, index) }

// Master derives the 32-byte master secret key from a seed via HKDF_mod_r
// over IKM = seed || 0x00.
func (d *Deriver) Master(seed []byte) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	ikm := make([]byte, 0, len(seed)+1)
	ikm = append(ikm, seed...)
	ikm = append(ikm, 0x00)
	return d.hkdfModR(ikm, "master")
}

// Child derives the 32-byte child key of parentSK at index: the parent is
// stretched through the Lamport ladder and the result fed back through the
// same HKDF_mod_r procedure used for the master key.
func (d *Deriver) Child(parentSK []byte, index uint32) ([]byte, error) {
	if len(parentSK) != KeySize {
		return nil, fmt.Errorf("parent key must be %d bytes, got %d", KeySize, len(parentSK))
	}
	lamport, err := lamportPK(parentSK, index)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Uint32("index", index).Msg("lamport stretch complete")
	ikm := append(lamport, 0x00)
	return d.hkdfModR(ikm, "child")
}

// hkdfModR runs the HKDF_mod_r loop: rehash the salt, extract, expand to 48
// bytes, reduce mod r, and retry while the candidate scalar is zero. The
// retry loop is part of the derivation procedure and must not be shortcut.
func (d *Deriver) hkdfModR(ikm []byte, stage string) ([]byte, error) {
	salt := []byte(hkdfSalt)
	for iteration := 1; ; iteration++ {
		sum := sha256.Sum256(salt)
		salt = sum[:]

		prk := Extract(salt, ikm)
		okm, err := Expand(prk, okmInfo, 48)
		if err != nil {
			return nil, err
		}

		sk := new(big.Int).SetBytes(okm)
		sk.Mod(sk, curveOrder)
		if sk.Sign() != 0 {
			d.log.Debug().
				Str("stage", stage).
				Int("iterations", iteration).
				Msg("derived scalar")
			out := make([]byte, KeySize)
			sk.FillBytes(out)
			return out, nil
		}
		d.log.Debug().
			Str("stage", stage).
			Int("iteration", iteration).
			Msg("zero scalar, rehashing salt")
	}
}

// lamportPK compresses a parent scalar and child index into a 32-byte
// Lamport public key. Two independent 255-block HKDF ladders are generated
// from the parent bytes and their bitwise complement, every block is hashed
// with SHA-256, and the 510 hashes are hashed once more in fixed order. The
// ladder destroys any algebraic relation between parent and child scalars.
func lamportPK(parentSK []byte, index uint32) ([]byte, error) {
	var salt [4]byte
	binary.BigEndian.PutUint32(salt[:], index)

	notSK := make([]byte, len(parentSK))
	for i, b := range parentSK {
		notSK[i] = ^b
	}

	compress := sha256.New()
	for _, ikm := range [2][]byte{parentSK, notSK} {
		ladder, err := Expand(Extract(salt[:], ikm), nil, 32*lamportChunks)
		if err != nil {
			return nil, err
		}
		for i := 0; i < lamportChunks; i++ {
			chunk := sha256.Sum256(ladder[i*32 : (i+1)*32])
			compress.Write(chunk[:])
		}
	}
	return compress.Sum(nil), nil
}
