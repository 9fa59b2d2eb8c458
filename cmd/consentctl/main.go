package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go-cookieconsent/internal/app"
	"go-cookieconsent/internal/config"
	"go-cookieconsent/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates the application. The caller must defer a.Close().
// Opening a SQL store applies pending migrations.
func newApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(ctx, cfg, logger.New(cfg.Log, os.Stderr))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

// staleCacheWarning explains when a publish from this process cannot reach
// the configuration cache of running servers. Only the sqlite cache is
// shared between processes.
func staleCacheWarning(cfg config.CacheConfig) string {
	if cfg.Driver == "sqlite" {
		return ""
	}
	return fmt.Sprintf("Warning: cache.driver is %q, so running servers keep serving their cached configuration "+
		"for up to %s. Use cache.driver=sqlite with a shared cache.filePath, or restart the servers.", cfg.Driver, cfg.TTL)
}

var rootCmd = &cobra.Command{
	Use:   "consentctl",
	Short: "Administer cookie consent categories, settings and records",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.DB == nil {
			fmt.Println("Store needs no migrations.")
			return nil
		}
		fmt.Println("Migrations applied.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default categories that do not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.Admin.SeedCategories(cmd.Context())
		if err != nil {
			return fmt.Errorf("seeding categories: %w", err)
		}
		fmt.Printf("Seeded %d categories.\n", created)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Re-publish the current settings, asking every visitor for consent again",
	RunE: func(cmd *cobra.Command, args []string) error {
		locale, _ := cmd.Flags().GetString("locale")

		a, cfg, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		settings, err := a.Admin.Republish(cmd.Context(), locale)
		if err != nil {
			return fmt.Errorf("publishing settings: %w", err)
		}
		fmt.Printf("Published revision %d.\n", settings.Revision)
		if warning := staleCacheWarning(cfg.Cache); warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), warning)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <consentId>",
	Short: "Print the consent history of a consent id as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Admin.GetConsentRecord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringP("locale", "l", "", "Locale of the settings to publish")
	rootCmd.AddCommand(exportCmd)
}
