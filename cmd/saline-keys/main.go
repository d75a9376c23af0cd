// saline-keys manages hierarchical BLS keys for the Saline network:
// account creation, subaccount derivation, signing and verification.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/risingsealabs/saline-sdk/config"
	"github.com/risingsealabs/saline-sdk/internal/log"
	"github.com/risingsealabs/saline-sdk/pkg/account"
	"github.com/risingsealabs/saline-sdk/pkg/bls"
	"github.com/risingsealabs/saline-sdk/pkg/keygen"
	"github.com/risingsealabs/saline-sdk/pkg/keystore"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	configPath := defaultConfigPath()
	keystoreDir := ""
	basePath := ""
	logLevel := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = args[0][len("--config="):]
			args = args[1:]
		case args[0] == "--keystore" && len(args) > 1:
			keystoreDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--keystore="):
			keystoreDir = args[0][len("--keystore="):]
			args = args[1:]
		case args[0] == "--base-path" && len(args) > 1:
			basePath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--base-path="):
			basePath = args[0][len("--base-path="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			logLevel = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			logLevel = args[0][len("--log-level="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	// Command-line flags override the config file.
	if keystoreDir != "" {
		cfg.KeystoreDir = keystoreDir
	}
	if basePath != "" {
		cfg.BasePath = basePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal("config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "new":
		cmdNew(cmdArgs, cfg)
	case "import":
		cmdImport(cmdArgs, cfg)
	case "list":
		cmdList(cfg)
	case "subaccount":
		cmdSubaccount(cmdArgs, cfg)
	case "derive":
		cmdDerive(cmdArgs, cfg)
	case "sign":
		cmdSign(cmdArgs, cfg)
	case "verify":
		cmdVerify(cmdArgs)
	case "aggregate":
		cmdAggregate(cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: saline-keys [global flags] <command> [flags]

Global flags:
  --config <path>     Config file (default: ~/.saline/saline.conf)
  --keystore <dir>    Keystore directory (default: ~/.saline/keystore)
  --base-path <path>  Derivation base path (default: m/12381/997)
  --log-level <lvl>   debug, info, warn, or error

Commands:
  new --name <n>                  Create a new account with a fresh mnemonic
  import --name <n> --mnemonic "..."
                                  Import an account from a BIP-39 mnemonic
  list                            List stored accounts

  subaccount new --account <n> --label <l> [--path <p>]
                                  Derive a new subaccount
  subaccount list --account <n>   List an account's subaccounts

  derive --mnemonic "..." --path <p>
                                  Derive a key without touching the keystore
  sign --account <n> --label <l> (--message <text> | --file <path>)
                                  Sign a message with a subaccount key
  verify --pubkey <hex> --signature <hex> (--message <text> | --file <path>)
                                  Verify a signature
  aggregate <sig_hex> [<sig_hex> ...]
                                  Aggregate signatures into one
`)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".saline/saline.conf"
	}
	return home + "/.saline/saline.conf"
}

// ── new / import ────────────────────────────────────────────────────────

func cmdNew(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: saline-keys new --name <name>")
	}

	mnemonic, err := account.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	createAccount(*name, mnemonic, cfg)
}

func cmdImport(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (12 or 24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: saline-keys import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !account.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	createAccount(*name, *mnemonic, cfg)
}

func createAccount(name, mnemonic string, cfg *config.Config) {
	// Prompt for password (twice).
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	acct, err := account.FromMnemonic(mnemonic, cfg.BasePath, account.WithLogger(log.Account))
	if err != nil {
		fatal("derive account: %v", err)
	}
	sub, err := acct.CreateSubaccount("default")
	if err != nil {
		fatal("derive subaccount: %v", err)
	}

	seed, err := account.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(name, seed, password, cfg.BasePath, keystore.DefaultParams()); err != nil {
		fatal("create account: %v", err)
	}

	// Zero seed.
	for i := range seed {
		seed[i] = 0
	}

	if err := ks.AddSubaccount(name, keystore.SubaccountEntry{
		Label:     sub.Label(),
		Path:      sub.Path(),
		PublicKey: sub.PublicKeyHex(),
	}); err != nil {
		fatal("store subaccount: %v", err)
	}
	if err := ks.SetNextIndex(name, acct.NextIndex()); err != nil {
		fatal("store next index: %v", err)
	}

	fmt.Printf("Account created: %s\n", name)
	fmt.Printf("Address: %s\n", account.FormatAddress(cfg.AddressPrefix, sub.PublicKey()))
}

// ── list ────────────────────────────────────────────────────────────────

func cmdList(cfg *config.Config) {
	ks, err := keystore.New(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No accounts found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

// ── subaccount ──────────────────────────────────────────────────────────

func cmdSubaccount(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fatal("Usage: saline-keys subaccount <new|list> [flags]")
	}

	switch args[0] {
	case "new":
		cmdSubaccountNew(args[1:], cfg)
	case "list":
		cmdSubaccountList(args[1:], cfg)
	default:
		fatal("Unknown subaccount command: %s\nUsage: saline-keys subaccount <new|list> [flags]", args[0])
	}
}

func cmdSubaccountNew(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("subaccount new", flag.ExitOnError)
	name := fs.String("account", "", "Account name")
	label := fs.String("label", "", "Subaccount label")
	path := fs.String("path", "", "Derivation path (default: next auto index)")
	fs.Parse(args)

	if *name == "" || *label == "" {
		fatal("Usage: saline-keys subaccount new --account <name> --label <label> [--path <path>]")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	acct, err := ks.Restore(*name, password, account.WithLogger(log.Account))
	if err != nil {
		fatal("unlock account: %v", err)
	}

	var sub *account.Subaccount
	if *path != "" {
		sub, err = acct.CreateSubaccountAt(*label, *path)
	} else {
		sub, err = acct.CreateSubaccount(*label)
	}
	if err != nil {
		fatal("derive subaccount: %v", err)
	}

	if err := ks.AddSubaccount(*name, keystore.SubaccountEntry{
		Label:     sub.Label(),
		Path:      sub.Path(),
		PublicKey: sub.PublicKeyHex(),
	}); err != nil {
		fatal("store subaccount: %v", err)
	}
	if err := ks.SetNextIndex(*name, acct.NextIndex()); err != nil {
		fatal("store next index: %v", err)
	}

	fmt.Printf("Subaccount created: %s\n", sub.Label())
	fmt.Printf("Path:    %s\n", sub.Path())
	fmt.Printf("Address: %s\n", account.FormatAddress(cfg.AddressPrefix, sub.PublicKey()))
}

func cmdSubaccountList(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("subaccount list", flag.ExitOnError)
	name := fs.String("account", "", "Account name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: saline-keys subaccount list --account <name>")
	}

	ks, err := keystore.New(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	entries, err := ks.Subaccounts(*name)
	if err != nil {
		fatal("list subaccounts: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No subaccounts found.")
		return
	}

	for _, e := range entries {
		fmt.Printf("%s\n", e.Label)
		fmt.Printf("  Path:   %s\n", e.Path)
		fmt.Printf("  PubKey: %s\n", e.PublicKey)
	}
}

// ── derive ──────────────────────────────────────────────────────────────

func cmdDerive(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	path := fs.String("path", "", "Derivation path (e.g. m/12381/997/0/0/0)")
	fs.Parse(args)

	if *mnemonic == "" || *path == "" {
		fatal("Usage: saline-keys derive --mnemonic \"word1 word2 ...\" --path <path>")
	}

	seed, err := account.SeedFromMnemonic(*mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	sk, err := keygen.NewDeriver(log.Keygen).Derive(seed, *path)
	if err != nil {
		fatal("derive key: %v", err)
	}
	key, err := bls.PrivateKeyFromBytes(sk)
	if err != nil {
		fatal("load key: %v", err)
	}
	pk := key.PublicKey()

	fmt.Printf("Path:    %s\n", *path)
	fmt.Printf("PubKey:  %s\n", hex.EncodeToString(pk.Bytes()))
	fmt.Printf("Address: %s\n", account.FormatAddress(cfg.AddressPrefix, pk))
}

// ── sign / verify / aggregate ───────────────────────────────────────────

func cmdSign(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	name := fs.String("account", "", "Account name")
	label := fs.String("label", "", "Subaccount label")
	message := fs.String("message", "", "Message text to sign")
	file := fs.String("file", "", "Path to a file containing the message")
	fs.Parse(args)

	if *name == "" || *label == "" {
		fatal("Usage: saline-keys sign --account <name> --label <label> (--message <text> | --file <path>)")
	}
	msg, err := readMessage(*message, *file)
	if err != nil {
		fatal("%v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	acct, err := ks.Restore(*name, password)
	if err != nil {
		fatal("unlock account: %v", err)
	}
	sub, err := acct.GetSubaccount(*label)
	if err != nil {
		fatal("subaccount: %v", err)
	}

	sig := sub.Sign(msg)
	fmt.Printf("Signature: %s\n", hex.EncodeToString(sig.Bytes()))
	fmt.Printf("PubKey:    %s\n", sub.PublicKeyHex())
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	pubkeyHex := fs.String("pubkey", "", "Public key hex (48 bytes compressed)")
	sigHex := fs.String("signature", "", "Signature hex (96 bytes compressed)")
	message := fs.String("message", "", "Message text")
	file := fs.String("file", "", "Path to a file containing the message")
	fs.Parse(args)

	if *pubkeyHex == "" || *sigHex == "" {
		fatal("Usage: saline-keys verify --pubkey <hex> --signature <hex> (--message <text> | --file <path>)")
	}
	msg, err := readMessage(*message, *file)
	if err != nil {
		fatal("%v", err)
	}

	pubkey, err := hex.DecodeString(*pubkeyHex)
	if err != nil {
		fatal("invalid pubkey hex: %v", err)
	}
	sig, err := hex.DecodeString(*sigHex)
	if err != nil {
		fatal("invalid signature hex: %v", err)
	}

	if bls.Verify(pubkey, msg, sig) {
		fmt.Println("Signature: VALID")
		return
	}
	fmt.Println("Signature: INVALID")
	os.Exit(1)
}

func cmdAggregate(args []string) {
	if len(args) < 1 {
		fatal("Usage: saline-keys aggregate <sig_hex> [<sig_hex> ...]")
	}

	sigs := make([][]byte, len(args))
	for i, arg := range args {
		sig, err := hex.DecodeString(arg)
		if err != nil {
			fatal("signature %d: invalid hex: %v", i, err)
		}
		sigs[i] = sig
	}

	agg, err := bls.Aggregate(sigs)
	if err != nil {
		fatal("aggregate: %v", err)
	}
	fmt.Printf("Aggregate: %s\n", hex.EncodeToString(agg))
}

// ── Input helpers ───────────────────────────────────────────────────────

// readMessage returns the message bytes from --message or --file.
func readMessage(message, file string) ([]byte, error) {
	switch {
	case message != "" && file != "":
		return nil, fmt.Errorf("--message and --file are mutually exclusive")
	case message != "":
		return []byte(message), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read message file: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("one of --message or --file is required")
	}
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
