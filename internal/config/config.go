package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger"
)

// EnvPrefix prefixes every environment override, e.g. WT_RPC_URL.
const EnvPrefix = "WT"

// Config represents the client configuration
type Config struct {
	Network   NetworkConfig    `yaml:"network"`
	Contracts ContractsConfig  `yaml:"contracts"`
	Gas       GasConfig        `yaml:"gas"`
	Reader    inventory.Config `yaml:"reader"`
	Wallet    WalletConfig     `yaml:"wallet"`
	Log       LogConfig        `yaml:"log"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// NetworkConfig describes how to reach the ledger.
type NetworkConfig struct {
	RPCURL             string   `yaml:"rpc_url"`
	RPCURLs            []string `yaml:"rpc_urls,omitempty"` // Failover endpoints tried after rpc_url
	WSEndpoint         string   `yaml:"ws_endpoint"`        // Needed for watch; empty disables subscriptions
	ChainID            int64    `yaml:"chain_id"`           // 0 skips the chain id check
	BlockConfirmations int      `yaml:"block_confirmations"`
	ReceiptTimeoutSecs int      `yaml:"receipt_timeout_secs"`
	MaxGasPriceGwei    uint64   `yaml:"max_gas_price_gwei"` // 0 disables the cap
}

// Endpoints returns rpc_url followed by rpc_urls, deduplicated.
func (n *NetworkConfig) Endpoints() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range append([]string{n.RPCURL}, n.RPCURLs...) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// ContractsConfig locates the registry and the bytecode used for deploys.
type ContractsConfig struct {
	RegistryAddress  string `yaml:"registry_address"`
	CategoryArtifact string `yaml:"category_artifact"`
	UnitArtifact     string `yaml:"unit_artifact"`
}

// GasConfig controls gas budgets.
type GasConfig struct {
	Margin           float64           `yaml:"margin"`
	FixedGasNetworks map[uint64]uint64 `yaml:"fixed_gas_networks"`
}

// WalletConfig locates the signing key and its password.
type WalletConfig struct {
	KeystoreDir  string `yaml:"keystore_dir"`
	PasswordFile string `yaml:"password_file,omitempty"`
	UseKeyring   bool   `yaml:"use_keyring"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// MetricsConfig controls the Prometheus endpoint served by watch.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the endpoint
}

// envOverrides lists the settings that can be overridden from the
// environment. Unset variables leave the file value alone.
type envOverrides struct {
	RPCURL          *string  `envconfig:"RPC_URL"`
	RPCURLs         []string `envconfig:"RPC_URLS"`
	WSEndpoint      *string  `envconfig:"WS_ENDPOINT"`
	ChainID         *int64   `envconfig:"CHAIN_ID"`
	RegistryAddress *string  `envconfig:"REGISTRY_ADDRESS"`
	GasMargin       *float64 `envconfig:"GAS_MARGIN"`
	KeystoreDir     *string  `envconfig:"KEYSTORE_DIR"`
	PasswordFile    *string  `envconfig:"PASSWORD_FILE"`
	LogLevel        *string  `envconfig:"LOG_LEVEL"`
	LogFormat       *string  `envconfig:"LOG_FORMAT"`
	MetricsListen   *string  `envconfig:"METRICS_LISTEN"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".wt-client")

	policy := ledger.DefaultGasPolicy()
	return &Config{
		Network: NetworkConfig{
			RPCURL:             "http://localhost:8545",
			BlockConfirmations: 0,
			ReceiptTimeoutSecs: 120,
			MaxGasPriceGwei:    100,
		},
		Contracts: ContractsConfig{
			CategoryArtifact: filepath.Join(baseDir, "artifacts", "InventoryCategory.json"),
			UnitArtifact:     filepath.Join(baseDir, "artifacts", "Unit.json"),
		},
		Gas: GasConfig{
			Margin:           policy.Margin,
			FixedGasNetworks: policy.FixedGas,
		},
		Reader: inventory.Config{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Wallet: WalletConfig{
			KeystoreDir: filepath.Join(baseDir, "keystore"),
			UseKeyring:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
	}
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".wt-client", "config.yaml")
}

// Load reads path over the defaults, applies WT_* environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}

	setString(&c.Network.RPCURL, env.RPCURL)
	if len(env.RPCURLs) > 0 {
		c.Network.RPCURLs = env.RPCURLs
	}
	setString(&c.Network.WSEndpoint, env.WSEndpoint)
	if env.ChainID != nil {
		c.Network.ChainID = *env.ChainID
	}
	setString(&c.Contracts.RegistryAddress, env.RegistryAddress)
	if env.GasMargin != nil {
		c.Gas.Margin = *env.GasMargin
	}
	setString(&c.Wallet.KeystoreDir, env.KeystoreDir)
	setString(&c.Wallet.PasswordFile, env.PasswordFile)
	setString(&c.Log.Level, env.LogLevel)
	setString(&c.Log.Format, env.LogFormat)
	setString(&c.Metrics.Listen, env.MetricsListen)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Network.Endpoints()) == 0 {
		return fmt.Errorf("network.rpc_url is required")
	}
	if c.Network.ChainID < 0 {
		return fmt.Errorf("invalid chain_id: %d", c.Network.ChainID)
	}
	if c.Network.BlockConfirmations < 0 {
		return fmt.Errorf("block_confirmations must not be negative")
	}
	if c.Network.ReceiptTimeoutSecs < 0 {
		return fmt.Errorf("receipt_timeout_secs must not be negative")
	}

	if c.Contracts.RegistryAddress != "" {
		if err := validateEthAddress("registry_address", c.Contracts.RegistryAddress); err != nil {
			return err
		}
	}

	if err := c.GasPolicy().Validate(); err != nil {
		return err
	}

	if c.Reader.RequestsPerSecond < 0 {
		return fmt.Errorf("reader.requests_per_second must not be negative")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// validateEthAddress checks that an address is 0x-prefixed hex and non-zero.
func validateEthAddress(name, addr string) error {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("%s must start with 0x, got %q", name, addr)
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%s must be 42 characters of hex, got %q", name, addr)
	}
	if common.HexToAddress(addr) == (common.Address{}) {
		return fmt.Errorf("%s must not be the zero address", name)
	}
	return nil
}

// RegistryAddress returns the configured registry, or an error when unset.
func (c *Config) RegistryAddress() (common.Address, error) {
	if c.Contracts.RegistryAddress == "" {
		return common.Address{}, fmt.Errorf("contracts.registry_address is not configured")
	}
	return common.HexToAddress(c.Contracts.RegistryAddress), nil
}

// GasPolicy converts the gas section.
func (c *Config) GasPolicy() ledger.GasPolicy {
	return ledger.GasPolicy{Margin: c.Gas.Margin, FixedGas: c.Gas.FixedGasNetworks}
}

// ClientConfig converts the network section.
func (c *Config) ClientConfig() ledger.ClientConfig {
	return ledger.ClientConfig{
		Endpoints:  c.Network.Endpoints(),
		WSEndpoint: c.Network.WSEndpoint,
		ChainID:    c.Network.ChainID,
	}
}

// ExecutorConfig converts the network section.
func (c *Config) ExecutorConfig() ledger.ExecutorConfig {
	cfg := ledger.DefaultExecutorConfig()
	cfg.Confirmations = c.Network.BlockConfirmations
	cfg.ReceiptTimeout = secs(c.Network.ReceiptTimeoutSecs)
	cfg.MaxGasPrice = nil
	if c.Network.MaxGasPriceGwei > 0 {
		cfg.MaxGasPrice = new(big.Int).Mul(new(big.Int).SetUint64(c.Network.MaxGasPriceGwei), big.NewInt(1_000_000_000))
	}
	return cfg
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() {
	c.Contracts.CategoryArtifact = expandPath(c.Contracts.CategoryArtifact)
	c.Contracts.UnitArtifact = expandPath(c.Contracts.UnitArtifact)
	c.Wallet.KeystoreDir = expandPath(c.Wallet.KeystoreDir)
	c.Wallet.PasswordFile = expandPath(c.Wallet.PasswordFile)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
