package keygen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Derivation path grammar: "m" alone names the master key; otherwise
// "m/i1/.../ik" with 2 to 5 unsigned decimal segments, each optionally
// suffixed with a hardening marker that is stripped without changing the
// derivation.
const (
	// PathRoot is the literal marking the start of every derivation path.
	PathRoot = "m"

	// HardenedMarker is the accepted (and ignored) segment suffix.
	HardenedMarker = "'"

	minSegments = 2
	maxSegments = 5
)

// ErrInvalidPath is wrapped by every path validation failure.
var ErrInvalidPath = errors.New("invalid derivation path")

// ParsePath validates a derivation path and returns its child indices.
// The bare root marker yields an empty index list (the master key).
func ParsePath(path string) ([]uint32, error) {
	if path == PathRoot {
		return nil, nil
	}
	if !strings.HasPrefix(path, PathRoot+"/") {
		return nil, fmt.Errorf("%w: %q must start with %q", ErrInvalidPath, path, PathRoot+"/")
	}

	segments := strings.Split(path, "/")[1:]
	if len(segments) < minSegments {
		return nil, fmt.Errorf("%w: %q has %d segments, need at least %d",
			ErrInvalidPath, path, len(segments), minSegments)
	}
	if len(segments) > maxSegments {
		return nil, fmt.Errorf("%w: %q has %d segments, at most %d allowed",
			ErrInvalidPath, path, len(segments), maxSegments)
	}

	indices := make([]uint32, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSuffix(seg, HardenedMarker)
		idx, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q is not an unsigned integer", ErrInvalidPath, seg)
		}
		indices[i] = uint32(idx)
	}
	return indices, nil
}

// Derive resolves a path against a seed.
func Derive(seed []byte, path string) ([]byte, error) { return silent.Derive(seed, path) }

// Derive resolves a path against a seed: master derivation followed by one
// child derivation per segment, left to right, threading each scalar as the
// next step's parent.
func (d *Deriver) Derive(seed []byte, path string) ([]byte, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	sk, err := d.Master(seed)
	if err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if sk, err = d.Child(sk, idx); err != nil {
			return nil, fmt.Errorf("derive child %d of %q: %w", idx, path, err)
		}
	}
	return sk, nil
}
