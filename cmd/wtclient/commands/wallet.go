package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/windingtree/wt-client/internal/wallet"
)

const minPasswordLength = 8

// NewWalletCmd creates the wallet command group
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the signing wallet",
		Long: `Manage the Ethereum account that signs registry, property and booking
transactions.

The wallet is an encrypted keystore file (geth V3 format) under
wallet.keystore_dir. Commands that send transactions unlock it with a password
taken, in order, from:
  - the WT_WALLET_PASSWORD environment variable
  - wallet.password_file
  - the platform keyring (macOS Keychain, GNOME Keyring / KDE Wallet)
  - an interactive prompt

Examples:
  wtclient wallet create   # Generate a new account
  wtclient wallet import   # Import a private key
  wtclient wallet show     # Show address and keystore path
  wtclient wallet export   # Print the private key (use with caution)`,
	}

	cmd.AddCommand(newWalletCreateCmd())
	cmd.AddCommand(newWalletImportCmd())
	cmd.AddCommand(newWalletShowCmd())
	cmd.AddCommand(newWalletExportCmd())
	cmd.AddCommand(newWalletForgetPasswordCmd())
	return cmd
}

// keystoreDir returns the --keystore flag when set, else the configured dir.
func keystoreDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Wallet.KeystoreDir, nil
}

// storePasswordInKeyring saves the password so later commands unlock the
// wallet without prompting.
func storePasswordInKeyring(address, password string) {
	ring, err := wallet.OpenKeyring()
	if err == nil {
		err = wallet.StorePassword(ring, address, password)
	}
	if err == nil {
		fmt.Println("  Password saved to the system keyring.")
		return
	}
	fmt.Println("  Could not store password in the system keyring.")
	fmt.Println("  For automatic unlock, set one of:")
	fmt.Printf("    - %s environment variable\n", wallet.PasswordEnv)
	fmt.Println("    - wallet.password_file in config.yaml")
}

// promptNewPassword asks for a password twice, retrying on mismatch.
func promptNewPassword() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		if password := os.Getenv(wallet.PasswordEnv); password != "" {
			return password, nil
		}
		return "", fmt.Errorf("no terminal: set %s to provide the wallet password", wallet.PasswordEnv)
	}

	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(os.Stderr, "Enter wallet password: ")
		password, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if len(password) < minPasswordLength {
			Warning(fmt.Sprintf("Password must be at least %d characters. Try again.", minPasswordLength))
			continue
		}

		fmt.Fprint(os.Stderr, "Confirm wallet password: ")
		confirm, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if password != confirm {
			Warning("Passwords do not match. Try again.")
			continue
		}
		return password, nil
	}
	return "", fmt.Errorf("too many failed attempts")
}

func printWalletCreated(what string, w *wallet.Wallet, password string, saveToKeyring bool) {
	if jsonOutput() {
		_ = printJSON(map[string]string{"address": w.Address().Hex(), "keystore": w.Dir()})
		return
	}
	fmt.Println()
	Success(what)
	fmt.Println(StatusBox("Wallet", [][2]string{
		{"Address", w.Address().Hex()},
		{"Keystore", w.Dir()},
	}))
	if saveToKeyring {
		storePasswordInKeyring(w.Address().Hex(), password)
	}
	fmt.Println()
	Warning("Back up your keystore directory and remember your password.")
	fmt.Println(Hint("If you lose either, the account is unrecoverable."))
}

func newWalletCreateCmd() *cobra.Command {
	var (
		dir       string
		noKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDir(dir)
			if err != nil {
				return err
			}
			if w, err := wallet.Load(dir); err == nil {
				return fmt.Errorf("wallet already exists at %s (address: %s)", dir, w.Address().Hex())
			}

			password, err := promptNewPassword()
			if err != nil {
				return err
			}
			w, err := wallet.Create(dir, password)
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}
			printWalletCreated("Wallet created!", w, password, !noKeyring)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keystore", "", "Keystore directory (default: wallet.keystore_dir)")
	cmd.Flags().BoolVar(&noKeyring, "no-keyring", false, "Do not store the password in the system keyring")
	return cmd
}

func newWalletImportCmd() *cobra.Command {
	var (
		dir       string
		noKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from a private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDir(dir)
			if err != nil {
				return err
			}
			if w, err := wallet.Load(dir); err == nil {
				return fmt.Errorf("wallet already exists at %s (address: %s)", dir, w.Address().Hex())
			}
			if !term.IsTerminal(int(syscall.Stdin)) {
				return fmt.Errorf("wallet import needs a terminal")
			}

			fmt.Fprint(os.Stderr, "Enter private key (hex, with or without 0x prefix): ")
			keyHex, err := readPasswordNoEcho()
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}
			fmt.Fprintln(os.Stderr)
			if err := checkKeyHex(keyHex); err != nil {
				return err
			}

			password, err := promptNewPassword()
			if err != nil {
				return err
			}
			w, err := wallet.Import(dir, keyHex, password)
			if err != nil {
				return fmt.Errorf("failed to import wallet: %w", err)
			}
			printWalletCreated("Wallet imported!", w, password, !noKeyring)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keystore", "", "Keystore directory (default: wallet.keystore_dir)")
	cmd.Flags().BoolVar(&noKeyring, "no-keyring", false, "Do not store the password in the system keyring")
	return cmd
}

// checkKeyHex rejects input that is not a 32-byte hex key.
func checkKeyHex(s string) error {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 64 {
		return fmt.Errorf("private key must be 64 hex characters (32 bytes), got %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("private key is not valid hex")
	}
	return nil
}

func newWalletShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show wallet address and keystore path",
		Long:  "Display the wallet address and keystore directory. No password needed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDir(dir)
			if err != nil {
				return err
			}
			w, err := wallet.Load(dir)
			if errors.Is(err, wallet.ErrNoWallet) {
				if jsonOutput() {
					return printJSON(map[string]any{"address": nil, "keystore": dir})
				}
				Info("No wallet found")
				fmt.Println(Hint("Run 'wtclient wallet create' or 'wtclient wallet import'"))
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(map[string]string{"address": w.Address().Hex(), "keystore": w.Dir()})
			}
			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", w.Address().Hex()},
				{"Keystore", w.Dir()},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keystore", "", "Keystore directory (default: wallet.keystore_dir)")
	return cmd
}

func newWalletExportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the private key",
		Long:  "Decrypt the keystore and print the private key in hex. Anyone holding it controls the account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDir(dir)
			if err != nil {
				return err
			}
			w, err := wallet.Load(dir)
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(syscall.Stdin)) {
				return fmt.Errorf("wallet export needs a terminal")
			}

			fmt.Fprintf(os.Stderr, "Password for %s: ", w.Address().Hex())
			password, err := readPasswordNoEcho()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Fprintln(os.Stderr)

			key, err := w.Export(password)
			if err != nil {
				return err
			}
			Warning("Never share this key.")
			fmt.Printf("0x%x\n", crypto.FromECDSA(key))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keystore", "", "Keystore directory (default: wallet.keystore_dir)")
	return cmd
}

func newWalletForgetPasswordCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "forget-password",
		Short: "Remove the wallet password from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keystoreDir(dir)
			if err != nil {
				return err
			}
			w, err := wallet.Load(dir)
			if err != nil {
				return err
			}
			ring, err := wallet.OpenKeyring()
			if err != nil {
				return fmt.Errorf("keyring unavailable: %w", err)
			}
			if err := wallet.DeletePassword(ring, w.Address().Hex()); err != nil {
				return err
			}
			Success("Password removed from keyring")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "keystore", "", "Keystore directory (default: wallet.keystore_dir)")
	return cmd
}
