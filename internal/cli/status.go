package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/storage/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts and the newest record in every table",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// dateColumns maps each destination table to its timestamp column.
var dateColumns = map[string]string{
	domain.Currency.Table:        "observed_at",
	domain.News.Table:            "published_at",
	domain.BrazilianStocks.Table: "date",
	domain.NasdaqStocks.Table:    "date",
	domain.Crypto.Table:          "date",
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, log := bootstrap()

	ctx := context.Background()
	db, dialect, err := schema.Open(cfg.Database.URL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	version, err := schema.Version(ctx, db.DB, dialect)
	if err != nil {
		log.Warn("Failed to read schema version", "error", err)
	}

	stats, err := schema.Stats(ctx, db, dateColumns)
	if err != nil {
		log.Error("Failed to query tables", "error", err)
		os.Exit(1)
	}

	_, _ = fmt.Fprintf(os.Stdout, "schema version: %d\n\n", version)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TABLE\tROWS\tLATEST")
	for _, s := range stats {
		latest := "-"
		if s.Latest != nil {
			latest = s.Latest.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", s.Table, s.Rows, latest)
	}
	_ = w.Flush()
}
