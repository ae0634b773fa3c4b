package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/cli"
	"github.com/Mmartinrusso/Orvit-sub062/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "doclife",
		Short:   "doclife - document lifecycle engine",
		Version: version.String(),
		Long: `doclife moves business documents (purchase requests, load orders,
deliveries, credit note requests, work orders) through their state machines.
Every transition runs its guards, side effects and audit write in one
transaction.`,
		SilenceUsage: true,
	}
	cli.AddCallerFlags(rootCmd)

	// Setup
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.SeedCmd())
	rootCmd.AddCommand(cli.RegistryCmd())

	// Documents
	rootCmd.AddCommand(cli.DocCmd())
	rootCmd.AddCommand(cli.ApplyCmd())

	// Administration
	rootCmd.AddCommand(cli.PeriodCmd())
	rootCmd.AddCommand(cli.RuleCmd())
	rootCmd.AddCommand(cli.DuplicatePolicyCmd())
	rootCmd.AddCommand(cli.InventoryCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
