package config

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/internal/ledger"
)

const registry = "0x1000000000000000000000000000000000000001"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gas.Margin != ledger.DefaultGasMargin {
		t.Errorf("expected gas margin %v, got %v", ledger.DefaultGasMargin, cfg.Gas.Margin)
	}
	if cfg.Gas.FixedGasNetworks[77] != 4_700_000 {
		t.Errorf("expected fixed gas 4700000 on network 77, got %d", cfg.Gas.FixedGasNetworks[77])
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if !strings.HasSuffix(cfg.Wallet.KeystoreDir, filepath.Join(".wt-client", "keystore")) {
		t.Errorf("unexpected keystore dir %s", cfg.Wallet.KeystoreDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.RPCURL != DefaultConfig().Network.RPCURL {
		t.Errorf("expected default rpc url, got %s", cfg.Network.RPCURL)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Network.RPCURL = "https://rpc.example.com"
	cfg.Network.RPCURLs = []string{"https://rpc.example.com", "https://backup.example.com"}
	cfg.Network.ChainID = 77
	cfg.Contracts.RegistryAddress = registry
	cfg.Gas.Margin = 1.5
	cfg.Reader.RequestsPerSecond = 20
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Network.Endpoints(); len(got) != 2 || got[1] != "https://backup.example.com" {
		t.Errorf("unexpected endpoints %v", got)
	}
	if loaded.Gas.Margin != 1.5 || loaded.Reader.RequestsPerSecond != 20 {
		t.Errorf("values did not round trip: %+v %+v", loaded.Gas, loaded.Reader)
	}
	addr, err := loaded.RegistryAddress()
	if err != nil || addr != common.HexToAddress(registry) {
		t.Errorf("RegistryAddress = %s, %v", addr, err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("network:\n  rpc_url: https://file.example.com\ngas:\n  margin: 1.1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WT_RPC_URL", "https://env.example.com")
	t.Setenv("WT_GAS_MARGIN", "2")
	t.Setenv("WT_REGISTRY_ADDRESS", registry)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.RPCURL != "https://env.example.com" {
		t.Errorf("expected env rpc url, got %s", cfg.Network.RPCURL)
	}
	if cfg.Gas.Margin != 2 {
		t.Errorf("expected env margin 2, got %v", cfg.Gas.Margin)
	}
	if cfg.Contracts.RegistryAddress != registry {
		t.Errorf("expected env registry, got %s", cfg.Contracts.RegistryAddress)
	}
	if cfg.Gas.FixedGasNetworks[77] != 4_700_000 {
		t.Error("file without fixed_gas_networks should keep the default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no endpoints", func(c *Config) { c.Network.RPCURL = "" }, "rpc_url"},
		{"bad registry", func(c *Config) { c.Contracts.RegistryAddress = "0x1234" }, "registry_address"},
		{"zero registry", func(c *Config) { c.Contracts.RegistryAddress = "0x0000000000000000000000000000000000000000" }, "zero address"},
		{"missing prefix", func(c *Config) { c.Contracts.RegistryAddress = strings.TrimPrefix(registry, "0x") }, "must start with 0x"},
		{"margin below one", func(c *Config) { c.Gas.Margin = 0.9 }, "gas margin"},
		{"zero fixed gas", func(c *Config) { c.Gas.FixedGasNetworks = map[uint64]uint64{77: 0} }, "fixed gas"},
		{"negative rate", func(c *Config) { c.Reader.RequestsPerSecond = -1 }, "requests_per_second"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestExecutorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.ReceiptTimeoutSecs = 30
	cfg.Network.BlockConfirmations = 2
	cfg.Network.MaxGasPriceGwei = 5

	ec := cfg.ExecutorConfig()
	if ec.ReceiptTimeout != 30*time.Second || ec.Confirmations != 2 {
		t.Errorf("unexpected executor config %+v", ec)
	}
	if ec.MaxGasPrice.Cmp(big.NewInt(5_000_000_000)) != 0 {
		t.Errorf("expected 5 gwei cap, got %s", ec.MaxGasPrice)
	}

	cfg.Network.MaxGasPriceGwei = 0
	if cfg.ExecutorConfig().MaxGasPrice != nil {
		t.Error("expected no cap")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("expandPath = %s", got)
	}
	if got := expandPath("/abs"); got != "/abs" {
		t.Errorf("expandPath = %s", got)
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(margin string) {
		t.Helper()
		if err := os.WriteFile(path, []byte("gas:\n  margin: "+margin+"\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	write("1.25")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan float64, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c.Gas.Margin })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	write("0.5") // invalid, skipped
	time.Sleep(300 * time.Millisecond)
	write("1.75")

	select {
	case m := <-got:
		if m != 1.75 {
			t.Errorf("expected margin 1.75, got %v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}
