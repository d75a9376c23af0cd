package account

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/risingsealabs/saline-sdk/pkg/bls"
	"github.com/risingsealabs/saline-sdk/pkg/keygen"
)

// DefaultBasePath is the derivation prefix for auto-generated subaccount
// paths.
const DefaultBasePath = "m/12381/997"

var (
	ErrNoSeed          = errors.New("account has no seed")
	ErrDuplicateLabel  = errors.New("subaccount label already exists")
	ErrUnknownLabel    = errors.New("unknown subaccount label")
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")
	ErrNoDefault       = errors.New("account has no default subaccount")
)

// Account owns one seed and manages named subaccounts derived from it.
// Subaccounts are created on demand and never deleted or mutated. The
// label map and next-index counter are guarded by a mutex so concurrent
// CreateSubaccount calls cannot race on the same label or auto index.
type Account struct {
	mu           sync.Mutex
	seed         []byte
	mnemonic     string
	basePath     string
	subaccounts  map[string]*Subaccount
	defaultLabel string
	hasDefault   bool
	nextIndex    uint32

	deriver *keygen.Deriver
	log     zerolog.Logger
}

// Option configures an Account at construction time.
type Option func(*Account)

// WithLogger injects a structured logger for account and derivation events.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Account) {
		a.log = logger
		a.deriver = keygen.NewDeriver(logger)
	}
}

// WithNextIndex seeds the auto-derivation counter, for accounts restored
// from persisted metadata.
func WithNextIndex(n uint32) Option {
	return func(a *Account) {
		a.nextIndex = n
	}
}

// FromSeed creates an account over raw seed bytes. An empty basePath
// selects DefaultBasePath; otherwise the base path must satisfy the
// derivation path grammar.
func FromSeed(seed []byte, basePath string, opts ...Option) (*Account, error) {
	if len(seed) == 0 {
		return nil, ErrNoSeed
	}
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if _, err := keygen.ParsePath(basePath); err != nil {
		return nil, fmt.Errorf("base path: %w", err)
	}

	a := &Account{
		seed:        append([]byte{}, seed...),
		basePath:    basePath,
		subaccounts: make(map[string]*Subaccount),
		deriver:     keygen.NewDeriver(zerolog.Nop()),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// FromMnemonic creates an account from a BIP-39 mnemonic with an empty
// passphrase.
func FromMnemonic(mnemonic, basePath string, opts ...Option) (*Account, error) {
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	a, err := FromSeed(seed, basePath, opts...)
	if err != nil {
		return nil, err
	}
	a.mnemonic = mnemonic
	return a, nil
}

// Generate creates an account from a fresh random mnemonic. The mnemonic
// is retained and must be backed up by the caller via Mnemonic.
func Generate(opts ...Option) (*Account, error) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic, DefaultBasePath, opts...)
}

// Mnemonic returns the mnemonic the account was created from, or "" when
// it was built from raw seed bytes.
func (a *Account) Mnemonic() string {
	return a.mnemonic
}

// BasePath returns the derivation prefix for auto-generated paths.
func (a *Account) BasePath() string {
	return a.basePath
}

// NextIndex returns the auto-derivation counter, for persisting alongside
// subaccount metadata.
func (a *Account) NextIndex() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextIndex
}

// CreateSubaccount derives a subaccount at the next auto-generated path,
// basePath/0/0/{n}, and registers it under label. The index counter only
// advances on success, so auto-generated paths never collide.
func (a *Account) CreateSubaccount(label string) (*Subaccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := fmt.Sprintf("%s/0/0/%d", a.basePath, a.nextIndex)
	sub, err := a.createLocked(label, path)
	if err != nil {
		return nil, err
	}
	a.nextIndex++
	return sub, nil
}

// CreateSubaccountAt derives a subaccount at an explicit path and
// registers it under label. The auto-index counter is not consumed.
func (a *Account) CreateSubaccountAt(label, path string) (*Subaccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.createLocked(label, path)
}

func (a *Account) createLocked(label, path string) (*Subaccount, error) {
	if len(a.seed) == 0 {
		return nil, ErrNoSeed
	}
	if _, exists := a.subaccounts[label]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}

	sk, err := a.deriver.Derive(a.seed, path)
	if err != nil {
		return nil, fmt.Errorf("derive %q: %w", path, err)
	}
	sub, err := NewSubaccount(sk, path, label)
	if err != nil {
		return nil, err
	}

	a.subaccounts[label] = sub
	if !a.hasDefault {
		a.defaultLabel = label
		a.hasDefault = true
	}

	a.log.Info().
		Str("label", label).
		Str("path", path).
		Str("address", sub.Address()).
		Msg("subaccount created")
	return sub, nil
}

// GetSubaccount looks up a subaccount by label.
func (a *Account) GetSubaccount(label string) (*Subaccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub, ok := a.subaccounts[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return sub, nil
}

// Has reports whether a subaccount with the given label exists.
func (a *Account) Has(label string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.subaccounts[label]
	return ok
}

// Len returns the number of registered subaccounts.
func (a *Account) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subaccounts)
}

// ListSubaccounts returns label to hex-encoded public key pairs. Private
// material never leaves a subaccount.
func (a *Account) ListSubaccounts() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.subaccounts))
	for label, sub := range a.subaccounts {
		out[label] = sub.PublicKeyHex()
	}
	return out
}

// SetDefault marks an existing subaccount as the account's default signer.
func (a *Account) SetDefault(label string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.subaccounts[label]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	a.defaultLabel = label
	return nil
}

// Default returns the account's default subaccount: the first one created,
// unless SetDefault changed it. It satisfies Signer on the account's
// behalf.
func (a *Account) Default() (*Subaccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasDefault {
		return nil, ErrNoDefault
	}
	return a.subaccounts[a.defaultLabel], nil
}

var _ Signer = (*Account)(nil)

// PublicKey returns the default subaccount's public key, letting the
// account itself stand in as a Signer. It panics when no subaccount has
// been created; call Default to check first.
func (a *Account) PublicKey() *bls.PublicKey {
	sub, err := a.Default()
	if err != nil {
		panic("account: " + err.Error())
	}
	return sub.PublicKey()
}

// Sign signs with the default subaccount's key. It panics when no
// subaccount has been created; call Default to check first.
func (a *Account) Sign(message []byte) *bls.Signature {
	sub, err := a.Default()
	if err != nil {
		panic("account: " + err.Error())
	}
	return sub.Sign(message)
}

// String renders the account without exposing seed or private keys.
func (a *Account) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hasDefault {
		return fmt.Sprintf("account with %d subaccounts (default %q)", len(a.subaccounts), a.defaultLabel)
	}
	return fmt.Sprintf("account with %d subaccounts", len(a.subaccounts))
}
