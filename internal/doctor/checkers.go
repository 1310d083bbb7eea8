package doctor

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/internal/config"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/wallet"
)

// ChainReader is the part of the ledger client the network checks use.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

func shortAddress(addr common.Address) string {
	s := addr.Hex()
	return s[:6] + "..." + s[len(s)-4:]
}

// ConfigFileChecker checks that the config file exists and validates.
type ConfigFileChecker struct {
	path string
}

func NewConfigFileChecker(path string) *ConfigFileChecker {
	return &ConfigFileChecker{path: path}
}

func (c *ConfigFileChecker) Name() string       { return "Config file" }
func (c *ConfigFileChecker) Category() Category { return CategoryConfig }

func (c *ConfigFileChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		result.Status = StatusWarning
		result.Message = "Config file: not found, using defaults"
		result.Details = c.path
		result.Hint = "wtclient config init"
		return result
	}
	if _, err := config.Load(c.path); err != nil {
		result.Status = StatusError
		result.Message = "Config file: invalid"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusOK
	result.Message = "Config file: " + c.path
	return result
}

// ConnectionChecker checks that the RPC endpoint answers and serves the
// expected chain.
type ConnectionChecker struct {
	backend     ChainReader
	dialErr     error
	wantChainID int64
}

// NewConnectionChecker reports dialErr when the client could not be built.
// wantChainID 0 accepts any chain.
func NewConnectionChecker(backend ChainReader, dialErr error, wantChainID int64) *ConnectionChecker {
	return &ConnectionChecker{backend: backend, dialErr: dialErr, wantChainID: wantChainID}
}

func (c *ConnectionChecker) Name() string       { return "RPC endpoint" }
func (c *ConnectionChecker) Category() Category { return CategoryNetwork }

func (c *ConnectionChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category(), Hint: "check network.rpc_url"}

	if c.dialErr != nil || c.backend == nil {
		result.Status = StatusError
		result.Message = "RPC endpoint: unreachable"
		if c.dialErr != nil {
			result.Details = c.dialErr.Error()
		}
		return result
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		result.Status = StatusError
		result.Message = "RPC endpoint: not answering"
		result.Details = err.Error()
		return result
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		result.Status = StatusError
		result.Message = "RPC endpoint: chain id unavailable"
		result.Details = err.Error()
		return result
	}
	if c.wantChainID != 0 && chainID.Cmp(big.NewInt(c.wantChainID)) != 0 {
		result.Status = StatusError
		result.Message = fmt.Sprintf("RPC endpoint: serves chain %s, configured %d", chainID, c.wantChainID)
		result.Hint = "check network.chain_id"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("RPC endpoint: chain %s at block %d", chainID, head)
	return result
}

// SubscriptionChecker checks that live events can be followed.
type SubscriptionChecker struct {
	wsEndpoint   string
	canSubscribe bool
}

func NewSubscriptionChecker(wsEndpoint string, canSubscribe bool) *SubscriptionChecker {
	return &SubscriptionChecker{wsEndpoint: wsEndpoint, canSubscribe: canSubscribe}
}

func (c *SubscriptionChecker) Name() string       { return "Event subscriptions" }
func (c *SubscriptionChecker) Category() Category { return CategoryNetwork }

func (c *SubscriptionChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	switch {
	case c.wsEndpoint == "":
		result.Status = StatusWarning
		result.Message = "Event subscriptions: no WebSocket endpoint, 'watch' unavailable"
		result.Hint = "set network.ws_endpoint"
	case !c.canSubscribe:
		result.Status = StatusError
		result.Message = "Event subscriptions: WebSocket endpoint unreachable"
		result.Details = c.wsEndpoint
	default:
		result.Status = StatusOK
		result.Message = "Event subscriptions: " + c.wsEndpoint
	}
	return result
}

// RegistryChecker checks that a contract is deployed at the registry address.
type RegistryChecker struct {
	backend  ChainReader
	registry string
}

func NewRegistryChecker(backend ChainReader, registry string) *RegistryChecker {
	return &RegistryChecker{backend: backend, registry: registry}
}

func (c *RegistryChecker) Name() string       { return "Registry" }
func (c *RegistryChecker) Category() Category { return CategoryLedger }

func (c *RegistryChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category(), Hint: "set contracts.registry_address"}

	if c.registry == "" {
		result.Status = StatusError
		result.Message = "Registry: not configured"
		return result
	}
	if !common.IsHexAddress(c.registry) {
		result.Status = StatusError
		result.Message = "Registry: invalid address"
		result.Details = c.registry
		return result
	}
	if c.backend == nil {
		result.Status = StatusSkipped
		result.Message = "Registry: skipped, no connection"
		return result
	}

	addr := common.HexToAddress(c.registry)
	code, err := c.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		result.Status = StatusError
		result.Message = "Registry: lookup failed"
		result.Details = err.Error()
		return result
	}
	if len(code) == 0 {
		result.Status = StatusError
		result.Message = "Registry: no contract at " + addr.Hex()
		return result
	}

	result.Status = StatusOK
	result.Message = "Registry: " + shortAddress(addr)
	return result
}

// ArtifactChecker checks a creation-code artifact used for deploys.
type ArtifactChecker struct {
	kind contracts.Kind
	path string
}

func NewArtifactChecker(kind contracts.Kind, path string) *ArtifactChecker {
	return &ArtifactChecker{kind: kind, path: path}
}

func (c *ArtifactChecker) Name() string       { return c.kind.String() + " artifact" }
func (c *ArtifactChecker) Category() Category { return CategoryConfig }

func (c *ArtifactChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	if c.path == "" {
		result.Status = StatusWarning
		result.Message = c.Name() + ": not configured, deploys disabled"
		return result
	}
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		result.Status = StatusWarning
		result.Message = c.Name() + ": file missing, deploys disabled"
		result.Details = c.path
		return result
	}
	if _, err := contracts.LoadArtifact(c.kind, c.path); err != nil {
		result.Status = StatusError
		result.Message = c.Name() + ": unusable"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusOK
	result.Message = c.Name() + ": " + c.path
	return result
}

// WalletChecker checks that a keystore account exists and, when a password
// is available without prompting, that it unlocks the account.
type WalletChecker struct {
	dir       string
	passwords wallet.PasswordSources
}

func NewWalletChecker(dir string, passwords wallet.PasswordSources) *WalletChecker {
	return &WalletChecker{dir: dir, passwords: passwords}
}

func (c *WalletChecker) Name() string       { return "Wallet" }
func (c *WalletChecker) Category() Category { return CategoryWallet }

func (c *WalletChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{Name: c.Name(), Category: c.Category()}

	w, err := wallet.Load(c.dir)
	if errors.Is(err, wallet.ErrNoWallet) {
		result.Status = StatusError
		result.Message = "Wallet: not configured"
		result.Details = "A wallet is required to manage properties and book"
		result.Hint = "wtclient wallet create"
		return result
	}
	if err != nil {
		result.Status = StatusError
		result.Message = "Wallet: unable to read keystore"
		result.Details = err.Error()
		return result
	}

	password, err := wallet.ResolvePassword(w.Address().Hex(), c.passwords)
	if errors.Is(err, wallet.ErrNoPassword) {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Wallet: %s, password will be prompted", shortAddress(w.Address()))
		result.Hint = "set " + wallet.PasswordEnv + " or wallet.password_file"
		return result
	}
	if err != nil {
		result.Status = StatusError
		result.Message = "Wallet: password source unreadable"
		result.Details = err.Error()
		return result
	}
	if _, err := w.Unlock(password); err != nil {
		result.Status = StatusError
		result.Message = "Wallet: stored password does not unlock " + shortAddress(w.Address())
		result.Hint = "wtclient wallet forget-password"
		return result
	}

	result.Status = StatusOK
	result.Message = "Wallet: " + shortAddress(w.Address()) + ", unlocks without prompt"
	return result
}
