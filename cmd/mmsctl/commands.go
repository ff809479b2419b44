package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	pgStorage "multi-merchant-settlement/internal/adapter/storage/postgres"
	"multi-merchant-settlement/internal/app"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate unsynced sales into merchant ledgers",
		Long: `Without flags, syncs one batch of unsynced completed sales.
--order syncs every unsynced sale of one order; --sale syncs a single sale.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, _ := cmd.Flags().GetInt64("order")
			saleID, _ := cmd.Flags().GetString("sale")
			if orderID != 0 && saleID != "" {
				return errors.New("--order and --sale are mutually exclusive")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				switch {
				case saleID != "":
					id, err := uuid.Parse(saleID)
					if err != nil {
						return fmt.Errorf("invalid sale id: %w", err)
					}
					outcome, err := a.Recon.SyncOne(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(cmd, outcome)
				case orderID != 0:
					report, err := a.Recon.SyncOrder(ctx, orderID)
					if err != nil {
						return err
					}
					return printJSON(cmd, report)
				default:
					report, err := a.Recon.SyncAll(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, report)
				}
			})
		},
	}

	cmd.Flags().Int64("order", 0, "Sync every sale of this order")
	cmd.Flags().String("sale", "", "Sync a single sale by id")

	return cmd
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete refunded and failed sales older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days < 0 {
				return errors.New("--days must not be negative")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				deleted, err := a.Recon.CleanupOldSales(ctx, days)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"days": days, "deleted": deleted})
			})
		},
	}

	cmd.Flags().Int("days", 0, "Retention window in days (0 uses sync.retention_days)")

	return cmd
}

func testCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-credentials",
		Short: "Run a $1.00 authorization with a merchant's stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			siteID, _ := cmd.Flags().GetInt64("site")
			if userID <= 0 || siteID <= 0 {
				return errors.New("--user and --site are required")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ref := domain.MerchantRef{UserID: userID, SiteID: siteID}
				valid, err := a.Credentials.TestStored(ctx, ref)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"merchant": ref.String(), "valid": valid})
			})
		},
	}

	cmd.Flags().Int64("user", 0, "Merchant user id")
	cmd.Flags().Int64("site", 0, "Merchant site id")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print an Argon2id hash for admin.password_hash",
		Long:  "Hashes the argument, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := service.NewArgon2HashService().Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			withHost, _ := cmd.Flags().GetBool("with-host")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if e.cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate needs storage.driver=postgres, got %q", e.cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			pool, err := pgStorage.NewPool(ctx, e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pgStorage.Migrate(ctx, pool, withHost, e.log)
		},
	}

	cmd.Flags().Bool("with-host", false, "Also create the host shop tables")

	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show where a merchant's ledger lives and how many orders it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			siteID, _ := cmd.Flags().GetInt64("site")
			if userID <= 0 || siteID <= 0 {
				return errors.New("--user and --site are required")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ref := domain.MerchantRef{UserID: userID, SiteID: siteID}
				ledger, err := a.Ledgers.Ledger(ctx, ref)
				if err != nil {
					return err
				}
				n, err := ledger.CountOrders(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{
					"merchant": ref.String(),
					"path":     a.Ledgers.Path(ref),
					"orders":   n,
				})
			})
		},
	}

	cmd.Flags().Int64("user", 0, "Merchant user id")
	cmd.Flags().Int64("site", 0, "Merchant site id")

	return cmd
}
