package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/config"
	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var (
		driver string
		dsn    string
		cache  string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a doclife workspace",
		Long: `Write .doclife/config.json in the --dir directory and create the database
schema. The default database is a sqlite file under ~/.doclife.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			path := config.Path(dir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config: %w", err)
			}

			cfg := config.Default()
			if tenant, _ := cmd.Flags().GetString("tenant"); tenant != "" {
				cfg.Tenant = tenant
			}
			if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
				cfg.Actor = actor
			}
			cfg.DBDriver = driver
			cfg.DBDSN = dsn
			cfg.CacheBackend = cache
			if err := cfg.Validate(); err != nil {
				return err
			}

			dialect, err := db.ParseDialect(cfg.DBDriver)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			database, err := db.Open(ctx, db.Options{Dialect: dialect, DSN: cfg.DBDSN, BusyTimeout: cfg.TxTimeout.Duration})
			if err != nil {
				return err
			}
			version, err := db.CurrentVersion(ctx, database)
			database.Close()
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}

			if err := config.SaveConfig(dir, cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Database ready (%s, schema v%d)\n", cfg.DBDriver, version)
			fmt.Fprintf(out, "✓ Config written to %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  doclife seed")
			fmt.Fprintln(out, "  doclife doc list")
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "sqlite", "Database driver: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database path or connection string")
	cmd.Flags().StringVar(&cache, "cache", config.CacheMemory, "Config cache backend: memory, redis or none")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
