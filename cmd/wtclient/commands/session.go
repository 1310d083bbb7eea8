package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/term"

	"github.com/windingtree/wt-client/internal/booking"
	"github.com/windingtree/wt-client/internal/config"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/management"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/internal/wallet"
)

// session is the wiring shared by every command that talks to the ledger.
type session struct {
	cfg        *config.Config
	client     *ledger.Client
	metrics    *metrics.Collector
	encoder    *ledger.Encoder
	executor   *ledger.Executor
	reader     *inventory.Reader
	reconciler *events.Reconciler
	decoder    *contracts.Decoder
}

// openSession loads the config, configures logging and dials the ledger.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logging.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	registry, err := cfg.RegistryAddress()
	if err != nil {
		return nil, err
	}

	m := metrics.NewCollector()
	client, err := ledger.Dial(ctx, cfg.ClientConfig(), m)
	if err != nil {
		return nil, err
	}

	gas := ledger.NewGasEstimator(client, cfg.GasPolicy(), m)
	decoder := contracts.NewDecoder()
	return &session{
		cfg:        cfg,
		client:     client,
		metrics:    m,
		encoder:    ledger.NewEncoder(registry, client),
		executor:   ledger.NewExecutor(client, gas, cfg.ExecutorConfig(), m),
		reader:     inventory.NewReader(client, registry, cfg.Reader),
		reconciler: events.NewReconciler(client, decoder, m),
		decoder:    decoder,
	}, nil
}

func (s *session) Close() {
	s.client.Close()
}

// signer unlocks the configured keystore account.
func (s *session) signer() (ledger.Signer, error) {
	return unlockWallet(s.cfg)
}

// facade builds the management surface for the unlocked wallet. Missing
// artifact files leave deploys unavailable rather than failing the command.
func (s *session) facade() (*management.Facade, error) {
	signer, err := s.signer()
	if err != nil {
		return nil, err
	}
	deps := management.Deps{
		Encoder:    s.encoder,
		Executor:   s.executor,
		Reader:     s.reader,
		Reconciler: s.reconciler,
		Cache:      inventory.NewCache(time.Minute),
	}
	if deps.CategoryArtifact, err = optionalArtifact(contracts.Category, s.cfg.Contracts.CategoryArtifact); err != nil {
		return nil, err
	}
	if deps.UnitArtifact, err = optionalArtifact(contracts.Unit, s.cfg.Contracts.UnitArtifact); err != nil {
		return nil, err
	}
	return management.New(signer, deps), nil
}

func (s *session) orchestrator() *booking.Orchestrator {
	return booking.NewOrchestrator(s.reader, s.executor)
}

func optionalArtifact(kind contracts.Kind, path string) (*contracts.Artifact, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Debug("artifact not found, deploys disabled", "kind", kind.String(), "path", path)
		return nil, nil
	}
	return contracts.LoadArtifact(kind, path)
}

// unlockWallet loads the keystore and resolves its password from the
// environment, the password file, the keyring, or an interactive prompt.
func unlockWallet(cfg *config.Config) (ledger.Signer, error) {
	w, err := wallet.Load(cfg.Wallet.KeystoreDir)
	if err != nil {
		if errors.Is(err, wallet.ErrNoWallet) {
			return nil, fmt.Errorf("no wallet found in %s; run 'wtclient wallet create' first", cfg.Wallet.KeystoreDir)
		}
		return nil, err
	}

	src := wallet.PasswordSources{File: cfg.Wallet.PasswordFile}
	if cfg.Wallet.UseKeyring {
		if ring, err := wallet.OpenKeyring(); err == nil {
			src.Keyring = ring
		} else {
			logging.Debug("keyring unavailable", logging.Err(err))
		}
	}

	password, err := wallet.ResolvePassword(w.Address().Hex(), src)
	if errors.Is(err, wallet.ErrNoPassword) {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return nil, fmt.Errorf("wallet is locked: set %s or wallet.password_file", wallet.PasswordEnv)
		}
		fmt.Fprintf(os.Stderr, "Password for %s: ", w.Address().Hex())
		password, err = readPasswordNoEcho()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return nil, err
	}
	signer, err := w.Unlock(password)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func readPasswordNoEcho() (string, error) {
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// parseAddress parses a 0x-prefixed hex address argument.
func parseAddress(what, s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", what, s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid content hash %q", s)
	}
	return common.BytesToHash(b), nil
}

// printReceipt reports a mined transaction.
func printReceipt(what string, r *ledger.Receipt) error {
	if jsonOutput() {
		return printJSON(r)
	}
	Success(what)
	fmt.Println(Hint(fmt.Sprintf("tx %s in block %d, gas %d/%d", r.TxHash.Hex(), r.BlockNumber, r.GasUsed, r.GasLimit)))
	return nil
}
