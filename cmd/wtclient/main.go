package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/cmd/wtclient/commands"
)

var rootCmd = &cobra.Command{
	Use:           "wtclient",
	Short:         "Winding Tree hotel ledger client",
	Long:          "Manage properties, inventory and bookings on the Winding Tree hotel registry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to config file (default: ~/.wt-client/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&commands.OutputFormat, "output", "o", "", "Output format: \"\" (styled) or \"json\"")
}

func main() {
	rootCmd.AddCommand(commands.NewPropertyCmd())
	rootCmd.AddCommand(commands.NewCategoryCmd())
	rootCmd.AddCommand(commands.NewUnitCmd())
	rootCmd.AddCommand(commands.NewQuoteCmd())
	rootCmd.AddCommand(commands.NewBookCmd())
	rootCmd.AddCommand(commands.NewBookingsCmd())
	rootCmd.AddCommand(commands.NewRequestsCmd())
	rootCmd.AddCommand(commands.NewConfirmCmd())
	rootCmd.AddCommand(commands.NewWatchCmd())
	rootCmd.AddCommand(commands.NewWalletCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewDoctorCmd())
	rootCmd.AddCommand(commands.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
