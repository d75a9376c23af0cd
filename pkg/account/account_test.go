package account

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/risingsealabs/saline-sdk/pkg/bls"
)

// Deterministic BIP-39 test vector mnemonic ("abandon" x11 + "about").
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// testAccount returns an account built from the fixed test mnemonic.
func testAccount(t *testing.T) *Account {
	t.Helper()
	a, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	return a
}

func TestFromMnemonic(t *testing.T) {
	a := testAccount(t)

	if a.Mnemonic() != testMnemonic {
		t.Error("account should retain its mnemonic")
	}
	if a.BasePath() != DefaultBasePath {
		t.Errorf("BasePath() = %q, want %q", a.BasePath(), DefaultBasePath)
	}
	if a.Len() != 0 {
		t.Errorf("new account has %d subaccounts, want 0", a.Len())
	}
}

func TestFromMnemonic_Invalid(t *testing.T) {
	_, err := FromMnemonic("definitely not a valid mnemonic phrase", "")
	if !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("FromMnemonic() error = %v, want ErrInvalidMnemonic", err)
	}
}

func TestFromSeed_Validation(t *testing.T) {
	if _, err := FromSeed(nil, ""); !errors.Is(err, ErrNoSeed) {
		t.Errorf("FromSeed(nil) error = %v, want ErrNoSeed", err)
	}
	if _, err := FromSeed(make([]byte, 64), "m/not/numeric"); err == nil {
		t.Error("FromSeed() should reject a malformed base path")
	}
}

func TestGenerate(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !ValidateMnemonic(a.Mnemonic()) {
		t.Error("Generate() should produce a valid mnemonic")
	}

	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if a.Mnemonic() == b.Mnemonic() {
		t.Error("two generated accounts should not share a mnemonic")
	}
}

func TestCreateSubaccount_AutoPaths(t *testing.T) {
	a := testAccount(t)

	first, err := a.CreateSubaccount("trading")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	second, err := a.CreateSubaccount("savings")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	if got, want := first.Path(), DefaultBasePath+"/0/0/0"; got != want {
		t.Errorf("first path = %q, want %q", got, want)
	}
	if got, want := second.Path(), DefaultBasePath+"/0/0/1"; got != want {
		t.Errorf("second path = %q, want %q", got, want)
	}
	if first.PublicKeyHex() == second.PublicKeyHex() {
		t.Error("distinct auto paths must yield distinct keys")
	}
}

func TestCreateSubaccount_DuplicateLabel(t *testing.T) {
	a := testAccount(t)

	if _, err := a.CreateSubaccount("main"); err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	_, err := a.CreateSubaccount("main")
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("duplicate label error = %v, want ErrDuplicateLabel", err)
	}
	if a.Len() != 1 {
		t.Errorf("failed create should not register anything, have %d", a.Len())
	}
}

func TestCreateSubaccountAt(t *testing.T) {
	a := testAccount(t)

	sub, err := a.CreateSubaccountAt("pinned", "m/12381/997/1/0/42")
	if err != nil {
		t.Fatalf("CreateSubaccountAt() error: %v", err)
	}
	if sub.Path() != "m/12381/997/1/0/42" {
		t.Errorf("Path() = %q", sub.Path())
	}

	// Explicit-path creation must not consume the auto index.
	auto, err := a.CreateSubaccount("auto")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	if got, want := auto.Path(), DefaultBasePath+"/0/0/0"; got != want {
		t.Errorf("auto path = %q, want %q", got, want)
	}

	if _, err := a.CreateSubaccountAt("bad", "m/not/a/path"); err == nil {
		t.Error("CreateSubaccountAt() should reject an invalid path")
	}
}

func TestCreateSubaccount_Deterministic(t *testing.T) {
	a1 := testAccount(t)
	a2 := testAccount(t)

	s1, err := a1.CreateSubaccount("x")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	s2, err := a2.CreateSubaccount("x")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	if s1.PublicKeyHex() != s2.PublicKeyHex() {
		t.Error("identical seed and path must yield identical keys")
	}
}

func TestGetSubaccount(t *testing.T) {
	a := testAccount(t)
	created, err := a.CreateSubaccount("main")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	got, err := a.GetSubaccount("main")
	if err != nil {
		t.Fatalf("GetSubaccount() error: %v", err)
	}
	if got != created {
		t.Error("GetSubaccount() should return the registered subaccount")
	}

	if _, err := a.GetSubaccount("missing"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("unknown label error = %v, want ErrUnknownLabel", err)
	}
}

func TestListSubaccounts(t *testing.T) {
	a := testAccount(t)
	sub, err := a.CreateSubaccount("only")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	list := a.ListSubaccounts()
	if len(list) != 1 {
		t.Fatalf("ListSubaccounts() returned %d entries, want 1", len(list))
	}
	if list["only"] != sub.PublicKeyHex() {
		t.Error("listing should map labels to public key hex")
	}
}

func TestDefaultSubaccount(t *testing.T) {
	a := testAccount(t)

	if _, err := a.Default(); !errors.Is(err, ErrNoDefault) {
		t.Errorf("Default() on empty account error = %v, want ErrNoDefault", err)
	}

	first, err := a.CreateSubaccount("first")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	if _, err := a.CreateSubaccount("second"); err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	def, err := a.Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if def != first {
		t.Error("first subaccount should become the default")
	}

	if err := a.SetDefault("second"); err != nil {
		t.Fatalf("SetDefault() error: %v", err)
	}
	def, err = a.Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if def.Label() != "second" {
		t.Errorf("default label = %q, want %q", def.Label(), "second")
	}

	if err := a.SetDefault("missing"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("SetDefault(missing) error = %v, want ErrUnknownLabel", err)
	}
}

func TestCreateSubaccount_Concurrent(t *testing.T) {
	a := testAccount(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.CreateSubaccount(fmt.Sprintf("worker-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}

	// Every auto index must have been handed out exactly once.
	paths := make(map[string]bool)
	for label := range a.ListSubaccounts() {
		sub, err := a.GetSubaccount(label)
		if err != nil {
			t.Fatalf("GetSubaccount() error: %v", err)
		}
		if paths[sub.Path()] {
			t.Fatalf("duplicate auto path %q", sub.Path())
		}
		paths[sub.Path()] = true
	}
	if len(paths) != workers {
		t.Errorf("have %d distinct paths, want %d", len(paths), workers)
	}
}

func TestSubaccount_SignVerify(t *testing.T) {
	a := testAccount(t)
	sub, err := a.CreateSubaccount("signer")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	msg := []byte("authorize transfer of 10 USDC")
	sig := sub.Sign(msg)

	if !verifyWith(sub, msg, sig.Bytes()) {
		t.Error("signature from subaccount should verify under its public key")
	}
}

func TestAccount_SignerDelegation(t *testing.T) {
	a := testAccount(t)
	sub, err := a.CreateSubaccount("main")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	if !bytes.Equal(a.PublicKey().Bytes(), sub.PublicKey().Bytes()) {
		t.Error("account public key should be the default subaccount's")
	}

	msg := []byte("signed through the account")
	sig := a.Sign(msg)
	if !verifyWith(a, msg, sig.Bytes()) {
		t.Error("account signature should verify under the default subaccount's key")
	}
}

func TestAccount_SignerPanicsWithoutDefault(t *testing.T) {
	a := testAccount(t)
	defer func() {
		if recover() == nil {
			t.Error("Sign() on an account without subaccounts should panic")
		}
	}()
	a.Sign([]byte("no default"))
}

// verifyWith checks a signature against a Signer's public key.
func verifyWith(s Signer, msg, sig []byte) bool {
	return bls.Verify(s.PublicKey().Bytes(), msg, sig)
}
