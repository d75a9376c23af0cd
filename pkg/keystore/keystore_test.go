package keystore

import (
	"bytes"
	"testing"

	"github.com/risingsealabs/saline-sdk/pkg/account"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var testPassword = []byte("correct horse battery staple")

// testStore returns a keystore rooted in a temp directory.
func testStore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return ks
}

// testSeed derives the fixed test seed.
func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := account.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return seed
}

func TestCreateLoad_Roundtrip(t *testing.T) {
	ks := testStore(t)
	seed := testSeed(t)

	if err := ks.Create("main", seed, testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	loaded, err := ks.Load("main", testPassword)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(loaded, seed) {
		t.Error("loaded seed should match the stored seed")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	ks := testStore(t)
	seed := testSeed(t)

	if err := ks.Create("main", seed, testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := ks.Create("main", seed, testPassword, account.DefaultBasePath, fastParams()); err == nil {
		t.Error("Create() of an existing account should fail")
	}
}

func TestLoad_WrongPassword(t *testing.T) {
	ks := testStore(t)
	if err := ks.Create("main", testSeed(t), testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := ks.Load("main", []byte("nope")); err == nil {
		t.Error("Load() with wrong password should fail")
	}
}

func TestLoad_Missing(t *testing.T) {
	ks := testStore(t)
	if _, err := ks.Load("ghost", testPassword); err == nil {
		t.Error("Load() of a missing account should fail")
	}
}

func TestAddSubaccount(t *testing.T) {
	ks := testStore(t)
	if err := ks.Create("main", testSeed(t), testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	entry := SubaccountEntry{
		Label:     "trading",
		Path:      "m/12381/997/0/0/0",
		PublicKey: "aabbcc",
	}
	if err := ks.AddSubaccount("main", entry); err != nil {
		t.Fatalf("AddSubaccount() error: %v", err)
	}

	// Identical re-insert is idempotent.
	if err := ks.AddSubaccount("main", entry); err != nil {
		t.Errorf("idempotent AddSubaccount() error: %v", err)
	}

	// Same label, different key material: rejected.
	conflict := entry
	conflict.Path = "m/12381/997/0/0/1"
	if err := ks.AddSubaccount("main", conflict); err == nil {
		t.Error("AddSubaccount() should reject label reuse with a different path")
	}

	// Same path, different label: rejected.
	samePath := SubaccountEntry{Label: "other", Path: entry.Path, PublicKey: "ddeeff"}
	if err := ks.AddSubaccount("main", samePath); err == nil {
		t.Error("AddSubaccount() should reject path reuse under a different label")
	}

	entries, err := ks.Subaccounts("main")
	if err != nil {
		t.Fatalf("Subaccounts() error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("have %d entries, want 1", len(entries))
	}
}

func TestNextIndex_Persistence(t *testing.T) {
	ks := testStore(t)
	if err := ks.Create("main", testSeed(t), testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := ks.SetNextIndex("main", 7); err != nil {
		t.Fatalf("SetNextIndex() error: %v", err)
	}
	idx, err := ks.NextIndex("main")
	if err != nil {
		t.Fatalf("NextIndex() error: %v", err)
	}
	if idx != 7 {
		t.Errorf("NextIndex() = %d, want 7", idx)
	}
}

func TestListDelete(t *testing.T) {
	ks := testStore(t)
	seed := testSeed(t)

	for _, name := range []string{"alpha", "beta"} {
		if err := ks.Create(name, seed, testPassword, account.DefaultBasePath, fastParams()); err != nil {
			t.Fatalf("Create(%q) error: %v", name, err)
		}
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List() returned %d names, want 2", len(names))
	}

	if err := ks.Delete("alpha"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := ks.Delete("alpha"); err == nil {
		t.Error("Delete() of a missing account should fail")
	}

	names, err = ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("List() after delete = %v, want [beta]", names)
	}
}

func TestRestore(t *testing.T) {
	ks := testStore(t)
	seed := testSeed(t)

	original, err := account.FromSeed(seed, "")
	if err != nil {
		t.Fatalf("FromSeed() error: %v", err)
	}
	sub, err := original.CreateSubaccount("trading")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}

	if err := ks.Create("main", seed, testPassword, original.BasePath(), fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	entry := SubaccountEntry{Label: sub.Label(), Path: sub.Path(), PublicKey: sub.PublicKeyHex()}
	if err := ks.AddSubaccount("main", entry); err != nil {
		t.Fatalf("AddSubaccount() error: %v", err)
	}
	if err := ks.SetNextIndex("main", original.NextIndex()); err != nil {
		t.Fatalf("SetNextIndex() error: %v", err)
	}

	restored, err := ks.Restore("main", testPassword)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	restoredSub, err := restored.GetSubaccount("trading")
	if err != nil {
		t.Fatalf("GetSubaccount() error: %v", err)
	}
	if restoredSub.PublicKeyHex() != sub.PublicKeyHex() {
		t.Error("restored subaccount should re-derive the same public key")
	}

	// The restored auto index continues where the original left off.
	next, err := restored.CreateSubaccount("savings")
	if err != nil {
		t.Fatalf("CreateSubaccount() error: %v", err)
	}
	if next.Path() == sub.Path() {
		t.Error("restored account must not reuse an already derived auto path")
	}
}

func TestRestore_CorruptMetadata(t *testing.T) {
	ks := testStore(t)
	seed := testSeed(t)

	if err := ks.Create("main", seed, testPassword, account.DefaultBasePath, fastParams()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	bogus := SubaccountEntry{
		Label:     "trading",
		Path:      "m/12381/997/0/0/0",
		PublicKey: "00112233", // not what the path derives
	}
	if err := ks.AddSubaccount("main", bogus); err != nil {
		t.Fatalf("AddSubaccount() error: %v", err)
	}

	if _, err := ks.Restore("main", testPassword); err == nil {
		t.Error("Restore() should fail when stored public keys do not match derivation")
	}
}
