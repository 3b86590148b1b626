package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/bclegal-go/internal/catalog"
	"github.com/54b3r/bclegal-go/internal/config"
	"github.com/54b3r/bclegal-go/internal/logging"
)

// NewCatalogCmd constructs the `bclegal catalog` command group.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the lawyer and resource catalog",
	}
	cmd.AddCommand(newCatalogImportCmd())
	return cmd
}

// newCatalogImportCmd constructs `bclegal catalog import`, which loads the
// JSON exports into the SQLite catalog.
func newCatalogImportCmd() *cobra.Command {
	var dbPath, lawyersPath, resourcesPath string
	var lockTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import lawyer and resource JSON exports into the SQLite catalog",
		Long: `Read the lawyer and resource JSON exports and replace the contents of the
SQLite catalog with them. Concurrent imports into the same database are
serialised with a file lock.

Examples:
  bclegal catalog import
  bclegal catalog import --lawyers ./lawyers.json --resources ./resources.json --db ./catalog.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			defaultDB, err := catalog.DefaultDBPath()
			if err != nil {
				return fmt.Errorf("catalog import: %w", err)
			}
			settings := config.CatalogFromEnv(defaultDB)
			if cmd.Flags().Changed("db") {
				settings.DBPath = dbPath
			}
			if cmd.Flags().Changed("lawyers") {
				settings.LawyersPath = lawyersPath
			}
			if cmd.Flags().Changed("resources") {
				settings.ResourcesPath = resourcesPath
			}
			if settings.DBPath == "" {
				return fmt.Errorf("catalog import: no database path (CATALOG_DB is disabled)")
			}

			c, err := catalog.ImportFiles(ctx, settings.DBPath, settings.LawyersPath, settings.ResourcesPath, lockTimeout)
			if err != nil {
				return fmt.Errorf("catalog import: %w", err)
			}

			log.Info("catalog imported",
				slog.String("db", settings.DBPath),
				slog.Int("lawyers", len(c.Lawyers)),
				slog.Int("resources", len(c.Resources)),
			)
			fmt.Printf("imported %d lawyers and %d resources into %s\n", len(c.Lawyers), len(c.Resources), settings.DBPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite catalog path (default: CATALOG_DB or ~/.bclegal/catalog.db)")
	cmd.Flags().StringVar(&lawyersPath, "lawyers", "", "Lawyer JSON export (default: CATALOG_LAWYERS)")
	cmd.Flags().StringVar(&resourcesPath, "resources", "", "Resource JSON export (default: CATALOG_RESOURCES)")
	cmd.Flags().DurationVar(&lockTimeout, "lock-timeout", catalog.DefaultLockTimeout, "How long to wait for a concurrent import to finish")

	return cmd
}
