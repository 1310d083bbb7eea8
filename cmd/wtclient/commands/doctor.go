package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/config"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/doctor"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/internal/wallet"
)

// NewDoctorCmd creates the doctor command
func NewDoctorCmd() *cobra.Command {
	var (
		category string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, ledger access and wallet",
		Long: `Run preflight checks and report what would stop other commands from working.

Categories: config, network, ledger, wallet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			path := configPath()
			cfg, err := config.Load(path)
			if err != nil {
				// The config checker reports the problem; the rest runs on defaults.
				cfg = config.DefaultConfig()
			}
			logging.Configure(os.Stderr, "error", cfg.Log.Format)

			checkers := []doctor.Checker{doctor.NewConfigFileChecker(path)}

			var backend doctor.ChainReader
			client, dialErr := ledger.Dial(ctx, cfg.ClientConfig(), metrics.NewCollector())
			if dialErr == nil {
				defer client.Close()
				backend = client
			}
			checkers = append(checkers,
				doctor.NewConnectionChecker(backend, dialErr, cfg.Network.ChainID),
				doctor.NewSubscriptionChecker(cfg.Network.WSEndpoint, client != nil && client.CanSubscribe()),
				doctor.NewRegistryChecker(backend, cfg.Contracts.RegistryAddress),
				doctor.NewArtifactChecker(contracts.Category, cfg.Contracts.CategoryArtifact),
				doctor.NewArtifactChecker(contracts.Unit, cfg.Contracts.UnitArtifact),
			)

			src := wallet.PasswordSources{File: cfg.Wallet.PasswordFile}
			if cfg.Wallet.UseKeyring {
				if ring, err := wallet.OpenKeyring(); err == nil {
					src.Keyring = ring
				}
			}
			checkers = append(checkers, doctor.NewWalletChecker(cfg.Wallet.KeystoreDir, src))

			d := doctor.New(doctor.Options{JSON: jsonOutput(), Category: doctor.Category(category)}, os.Stdout, isTTY(), checkers...)
			report, err := d.Run(ctx)
			if err != nil {
				return err
			}
			if !report.Summary.IsHealthy() {
				return fmt.Errorf("%d checks failed", report.Summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only run checks of one category")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")
	return cmd
}
