package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/marketetl/internal/control"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg, log := bootstrap()

	if err := control.Migrate(context.Background(), cfg.Database.URL); err != nil {
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	log.Success("Database schema is up to date")
}
