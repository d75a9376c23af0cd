package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/risingsealabs/saline-sdk/pkg/account"
)

// accountFile is the on-disk JSON format for an encrypted account.
type accountFile struct {
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	EncryptedSeed []byte            `json:"encrypted_seed"`
	BasePath      string            `json:"base_path"`
	NextIndex     uint32            `json:"next_index"`
	Subaccounts   []SubaccountEntry `json:"subaccounts"`
}

// SubaccountEntry stores the metadata needed to re-derive one subaccount.
// Private key material is never written; the public key is recorded so a
// restore can be cross-checked against what was originally derived.
type SubaccountEntry struct {
	Label     string `json:"label"`
	Path      string `json:"path"`
	PublicKey string `json:"public_key"` // hex-encoded, compressed
}

// Keystore manages encrypted account storage on disk, one file per account.
type Keystore struct {
	dir string
}

// New creates a keystore that reads and writes the given directory,
// creating it if needed.
func New(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

// accountPath returns the file path for an account by name.
func (ks *Keystore) accountPath(name string) string {
	return filepath.Join(ks.dir, name+".account")
}

// Create writes a new encrypted account file.
func (ks *Keystore) Create(name string, seed, password []byte, basePath string, params EncryptionParams) error {
	path := ks.accountPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("account %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	af := accountFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
		BasePath:      basePath,
		Subaccounts:   []SubaccountEntry{},
	}
	return ks.writeFile(path, &af)
}

// Load decrypts an account file and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	af, err := ks.readFile(ks.accountPath(name))
	if err != nil {
		return nil, err
	}

	seed, err := Decrypt(af.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt account: %w", err)
	}
	return seed, nil
}

// AddSubaccount records a derived subaccount in the account metadata.
// Re-adding an identical entry is a no-op; reusing a label or path for
// different key material is rejected.
func (ks *Keystore) AddSubaccount(name string, entry SubaccountEntry) error {
	path := ks.accountPath(name)
	af, err := ks.readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range af.Subaccounts {
		if existing.Label == entry.Label {
			if existing.Path == entry.Path && existing.PublicKey == entry.PublicKey {
				return nil
			}
			return fmt.Errorf("label %q already recorded with a different key", entry.Label)
		}
		if existing.Path == entry.Path {
			return fmt.Errorf("path %q already recorded under label %q", entry.Path, existing.Label)
		}
	}

	af.Subaccounts = append(af.Subaccounts, entry)
	return ks.writeFile(path, af)
}

// Subaccounts returns the recorded subaccount entries for an account.
func (ks *Keystore) Subaccounts(name string) ([]SubaccountEntry, error) {
	af, err := ks.readFile(ks.accountPath(name))
	if err != nil {
		return nil, err
	}
	return af.Subaccounts, nil
}

// NextIndex returns the persisted auto-derivation index for an account.
func (ks *Keystore) NextIndex(name string) (uint32, error) {
	af, err := ks.readFile(ks.accountPath(name))
	if err != nil {
		return 0, err
	}
	return af.NextIndex, nil
}

// SetNextIndex persists the auto-derivation index for an account.
func (ks *Keystore) SetNextIndex(name string, idx uint32) error {
	path := ks.accountPath(name)
	af, err := ks.readFile(path)
	if err != nil {
		return err
	}
	af.NextIndex = idx
	return ks.writeFile(path, af)
}

// List returns the names of all account files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".account" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes an account file. The seed is unrecoverable afterwards
// unless the mnemonic was backed up.
func (ks *Keystore) Delete(name string) error {
	path := ks.accountPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("account %q not found", name)
	}
	return os.Remove(path)
}

// Restore decrypts an account file and rebuilds a live account: every
// recorded subaccount is re-derived at its stored path and checked against
// the stored public key, so silent seed or metadata corruption surfaces as
// an error instead of a key mismatch at signing time.
func (ks *Keystore) Restore(name string, password []byte, opts ...account.Option) (*account.Account, error) {
	af, err := ks.readFile(ks.accountPath(name))
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(af.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt account: %w", err)
	}

	opts = append(opts, account.WithNextIndex(af.NextIndex))
	acct, err := account.FromSeed(seed, af.BasePath, opts...)
	if err != nil {
		return nil, err
	}
	for _, entry := range af.Subaccounts {
		sub, err := acct.CreateSubaccountAt(entry.Label, entry.Path)
		if err != nil {
			return nil, fmt.Errorf("restore subaccount %q: %w", entry.Label, err)
		}
		if sub.PublicKeyHex() != entry.PublicKey {
			return nil, fmt.Errorf("subaccount %q: derived key does not match stored public key", entry.Label)
		}
	}
	return acct, nil
}

func (ks *Keystore) writeFile(path string, af *accountFile) error {
	data, err := json.MarshalIndent(af, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*accountFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}
	var af accountFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	if af.Version != 1 {
		return nil, fmt.Errorf("unsupported account file version: %d", af.Version)
	}
	return &af, nil
}
