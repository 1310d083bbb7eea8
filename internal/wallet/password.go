package wallet

import (
	"os"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
	"github.com/cockroachdb/errors"

	"github.com/windingtree/wt-client/internal/logging"
)

const (
	// PasswordEnv names the environment variable checked first.
	PasswordEnv = "WT_WALLET_PASSWORD"

	keyringServiceName = "wt-client"
)

// ErrNoPassword is returned when no source holds a password.
var ErrNoPassword = errors.New("no wallet password available")

// PasswordSources lists where ResolvePassword looks, in order: the
// environment, a file, then the keyring.
type PasswordSources struct {
	File    string
	Keyring keyring.Keyring
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// ResolvePassword returns the password for address from the first source
// that has one.
func ResolvePassword(address string, src PasswordSources) (string, error) {
	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if pw := getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return "", errors.Wrap(err, "failed to read password file")
		}
		if pw := strings.TrimRight(string(data), "\r\n"); pw != "" {
			return pw, nil
		}
	}

	if src.Keyring != nil {
		item, err := src.Keyring.Get(keyringKey(address))
		switch {
		case err == nil:
			return string(item.Data), nil
		case errors.Is(err, keyring.ErrKeyNotFound):
		default:
			logging.Debug("keyring lookup failed", logging.Err(err))
		}
	}
	return "", ErrNoPassword
}

// StorePassword saves the password for address in ring.
func StorePassword(ring keyring.Keyring, address, password string) error {
	err := ring.Set(keyring.Item{
		Key:         keyringKey(address),
		Data:        []byte(password),
		Label:       "WT wallet password",
		Description: "Password for the wt-client keystore account " + address,
	})
	return errors.Wrap(err, "failed to store password in keyring")
}

// DeletePassword removes the stored password for address. Missing entries
// are not an error.
func DeletePassword(ring keyring.Keyring, address string) error {
	err := ring.Remove(keyringKey(address))
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return errors.Wrap(err, "failed to remove password from keyring")
}

// OpenKeyring opens the platform keyring, or returns an error when the
// platform has none.
func OpenKeyring() (keyring.Keyring, error) {
	backends := platformKeyringBackends()
	if len(backends) == 0 {
		return nil, errors.Newf("no keyring backend available on %s", runtime.GOOS)
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    keyringServiceName,
		AllowedBackends:                backends,
		KeychainTrustApplication:       true,
		KeychainAccessibleWhenUnlocked: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open keyring")
	}
	return ring, nil
}

func platformKeyringBackends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend}
	case "linux":
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend}
	default:
		return nil
	}
}

func keyringKey(address string) string {
	return "wallet-password:" + strings.ToLower(address)
}
