package wallet_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/ledger/ledgertest"
	"github.com/windingtree/wt-client/internal/wallet"
)

func TestLoadEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keystore")

	w, err := wallet.Load(dir, wallet.WithLightScrypt())
	assert.Nil(t, w)
	assert.True(t, errors.Is(err, wallet.ErrNoWallet))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateThenLoad(t *testing.T) {
	dir := t.TempDir()

	created, err := wallet.Create(dir, "hunter22", wallet.WithLightScrypt())
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, created.Address())
	assert.Equal(t, dir, created.Dir())

	loaded, err := wallet.Load(dir, wallet.WithLightScrypt())
	require.NoError(t, err)
	assert.Equal(t, created.Address(), loaded.Address())

	_, err = wallet.Create(dir, "other", wallet.WithLightScrypt())
	assert.True(t, errors.Is(err, wallet.ErrWalletExists))
}

func TestImportAndExport(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	w, err := wallet.Import(t.TempDir(), keyHex, "pw", wallet.WithLightScrypt())
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), w.Address())

	exported, err := w.Export("pw")
	require.NoError(t, err)
	assert.Equal(t, crypto.FromECDSA(key), crypto.FromECDSA(exported))

	_, err = w.Export("wrong")
	assert.True(t, errors.Is(err, wallet.ErrBadPassword))

	_, err = wallet.Import(t.TempDir(), "not-hex", "pw", wallet.WithLightScrypt())
	assert.Error(t, err)
}

func TestUnlockRejectsWrongPassword(t *testing.T) {
	w, err := wallet.Create(t.TempDir(), "right", wallet.WithLightScrypt())
	require.NoError(t, err)

	_, err = w.Unlock("wrong")
	assert.True(t, errors.Is(err, wallet.ErrBadPassword))
}

func TestKeystoreSignerSubmitsToLedger(t *testing.T) {
	w, err := wallet.Create(t.TempDir(), "pw", wallet.WithLightScrypt())
	require.NoError(t, err)
	signer, err := w.Unlock("pw")
	require.NoError(t, err)
	assert.Equal(t, w.Address(), signer.Address())

	chain := ledgertest.NewChain()
	encoder := ledger.NewEncoder(ledgertest.RegistryAddress, chain)
	cfg := ledger.DefaultExecutorConfig()
	cfg.ReceiptTimeout = 5 * time.Second
	executor := ledger.NewExecutor(chain, ledger.NewGasEstimator(chain, ledger.DefaultGasPolicy(), nil), cfg, nil)

	call, err := encoder.EncodeDirect(contracts.Registry, ledgertest.RegistryAddress, "registerHotel", "Keystore Inn", "")
	require.NoError(t, err)
	receipt, err := executor.Submit(context.Background(), signer, call)
	require.NoError(t, err)

	tx, _, err := chain.TransactionByHash(context.Background(), receipt.TxHash)
	require.NoError(t, err)
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from)
}

func TestKeySignerClear(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := wallet.KeySignerFromHex(common.Bytes2Hex(crypto.FromECDSA(key)))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})
	signed, err := signer.SignTx(context.Background(), tx, big.NewInt(7))
	require.NoError(t, err)
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(7)), signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)

	signer.Clear()
	_, err = signer.SignTx(context.Background(), tx, big.NewInt(7))
	assert.Error(t, err)
}

func TestResolvePasswordOrder(t *testing.T) {
	const addr = "0xAbC0000000000000000000000000000000000001"
	ring := keyring.NewArrayKeyring(nil)
	require.NoError(t, wallet.StorePassword(ring, addr, "from-keyring"))

	file := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))

	env := map[string]string{wallet.PasswordEnv: "from-env"}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		name string
		src  wallet.PasswordSources
		want string
		err  error
	}{
		{"env wins", wallet.PasswordSources{File: file, Keyring: ring, Getenv: getenv}, "from-env", nil},
		{"file before keyring", wallet.PasswordSources{File: file, Keyring: ring, Getenv: func(string) string { return "" }}, "from-file", nil},
		{"keyring last", wallet.PasswordSources{Keyring: ring, Getenv: func(string) string { return "" }}, "from-keyring", nil},
		{"nothing", wallet.PasswordSources{Keyring: keyring.NewArrayKeyring(nil), Getenv: func(string) string { return "" }}, "", wallet.ErrNoPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wallet.ResolvePassword(addr, tt.src)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	require.NoError(t, wallet.DeletePassword(ring, addr))
	require.NoError(t, wallet.DeletePassword(ring, addr))
	_, err := wallet.ResolvePassword(addr, wallet.PasswordSources{Keyring: ring, Getenv: func(string) string { return "" }})
	assert.True(t, errors.Is(err, wallet.ErrNoPassword))
}

func TestResolvePasswordMissingFile(t *testing.T) {
	_, err := wallet.ResolvePassword("0x1", wallet.PasswordSources{
		File:   filepath.Join(t.TempDir(), "absent"),
		Getenv: func(string) string { return "" },
	})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, wallet.ErrNoPassword))
}
