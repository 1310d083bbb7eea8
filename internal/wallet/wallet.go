// Package wallet holds the account that signs ledger transactions: an
// encrypted keystore on disk, or a raw key for tooling and tests.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/windingtree/wt-client/internal/ledger"
)

var (
	// ErrNoWallet is returned when the keystore directory holds no account.
	ErrNoWallet = errors.New("no wallet in keystore")
	// ErrWalletExists is returned when creating over an existing account.
	ErrWalletExists = errors.New("wallet already exists")
	// ErrBadPassword is returned when the keystore cannot be decrypted.
	ErrBadPassword = errors.New("could not decrypt wallet")
)

type options struct {
	scryptN int
	scryptP int
}

// Option configures how keys are encrypted.
type Option func(*options)

// WithLightScrypt trades key-file strength for speed. Meant for tests and
// throwaway wallets.
func WithLightScrypt() Option {
	return func(o *options) {
		o.scryptN = keystore.LightScryptN
		o.scryptP = keystore.LightScryptP
	}
}

func openKeystore(dir string, opts []Option) (*keystore.KeyStore, error) {
	o := options{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create keystore directory")
	}
	return keystore.NewKeyStore(dir, o.scryptN, o.scryptP), nil
}

// Wallet is a single keystore account.
type Wallet struct {
	ks      *keystore.KeyStore
	dir     string
	account accounts.Account
}

// Load opens the first account in dir. It returns ErrNoWallet when the
// directory is empty, so callers can fall back to read-only operation.
func Load(dir string, opts ...Option) (*Wallet, error) {
	ks, err := openKeystore(dir, opts)
	if err != nil {
		return nil, err
	}
	accts := ks.Accounts()
	if len(accts) == 0 {
		return nil, errors.Wrapf(ErrNoWallet, "%s", dir)
	}
	return &Wallet{ks: ks, dir: dir, account: accts[0]}, nil
}

// Create generates a new account encrypted with password.
func Create(dir, password string, opts ...Option) (*Wallet, error) {
	ks, err := openKeystore(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, errors.Wrapf(ErrWalletExists, "%s", dir)
	}
	account, err := ks.NewAccount(password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create account")
	}
	return &Wallet{ks: ks, dir: dir, account: account}, nil
}

// Import stores a hex-encoded private key encrypted with password.
func Import(dir, keyHex, password string, opts ...Option) (*Wallet, error) {
	key, err := crypto.HexToECDSA(trimHex(keyHex))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key hex")
	}
	ks, err := openKeystore(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, errors.Wrapf(ErrWalletExists, "%s", dir)
	}
	account, err := ks.ImportECDSA(key, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to import key")
	}
	return &Wallet{ks: ks, dir: dir, account: account}, nil
}

func (w *Wallet) Address() common.Address {
	return w.account.Address
}

// Dir returns the keystore directory.
func (w *Wallet) Dir() string {
	return w.dir
}

// Unlock checks password against the key file and returns a signer bound
// to it. The decrypted key is not kept.
func (w *Wallet) Unlock(password string) (*KeystoreSigner, error) {
	keyJSON, err := os.ReadFile(w.account.URL.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key file")
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decrypt key"), ErrBadPassword)
	}
	key.PrivateKey.D.SetUint64(0)
	return &KeystoreSigner{ks: w.ks, account: w.account, password: password}, nil
}

// Export decrypts and returns the private key.
func (w *Wallet) Export(password string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(w.account.URL.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key file")
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decrypt key"), ErrBadPassword)
	}
	return key.PrivateKey, nil
}

// KeystoreSigner signs with a keystore account, decrypting per transaction.
type KeystoreSigner struct {
	ks       *keystore.KeyStore
	account  accounts.Account
	password string
}

var _ ledger.Signer = (*KeystoreSigner)(nil)

func (s *KeystoreSigner) Address() common.Address {
	return s.account.Address
}

func (s *KeystoreSigner) SignTx(_ context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := s.ks.SignTxWithPassphrase(s.account, s.password, tx, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	return signed, nil
}

// KeySigner signs with an in-memory key.
type KeySigner struct {
	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ ledger.Signer = (*KeySigner)(nil)

// NewKeySigner wraps key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// KeySignerFromHex parses a hex private key, with or without 0x.
func KeySignerFromHex(keyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(trimHex(keyHex))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key hex")
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(_ context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, errors.New("signer key has been cleared")
	}
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.key)
}

// Clear zeros the key. Later SignTx calls fail.
func (s *KeySigner) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.D.SetUint64(0)
		s.key = nil
	}
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
