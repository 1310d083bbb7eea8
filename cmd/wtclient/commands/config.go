package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/windingtree/wt-client/internal/config"
)

// NewConfigCmd creates the config command group
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long: `Create and inspect the client configuration.

Settings are read from the config file and may be overridden by WT_*
environment variables (WT_RPC_URL, WT_REGISTRY_ADDRESS, WT_GAS_MARGIN, ...).`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(configPath())
		},
	})
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force    bool
		rpcURL   string
		wsURL    string
		registry string
		chainID  int64
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if rpcURL != "" {
				cfg.Network.RPCURL = rpcURL
			}
			if wsURL != "" {
				cfg.Network.WSEndpoint = wsURL
			}
			if registry != "" {
				cfg.Contracts.RegistryAddress = registry
			}
			if chainID != 0 {
				cfg.Network.ChainID = chainID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			Success("Config written to " + path)
			if cfg.Contracts.RegistryAddress == "" {
				fmt.Println(Hint("Set contracts.registry_address before using the ledger"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint")
	cmd.Flags().StringVar(&wsURL, "ws-endpoint", "", "WebSocket endpoint for event subscriptions")
	cmd.Flags().StringVar(&registry, "registry", "", "Registry contract address")
	cmd.Flags().Int64Var(&chainID, "chain-id", 0, "Chain ID (0 = ask the node)")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults and environment overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
