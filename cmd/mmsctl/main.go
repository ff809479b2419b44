// Command mmsctl runs one-off settlement maintenance against the configured stores.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"multi-merchant-settlement/config"
	"multi-merchant-settlement/internal/app"
	"multi-merchant-settlement/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "mmsctl",
		Short:         "Operate the multi-merchant settlement service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(testCredentialsCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ledgerCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles what every command needs after config is loaded.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &env{cfg: cfg, log: logger.New(cfg.Log.Level, cfg.Log.Pretty)}, nil
}

// withApp opens the full service graph, runs fn and closes everything.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, e.cfg, e.log, app.Options{Version: Version})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
