package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/marketetl/internal/control"
	"github.com/vietddude/marketetl/internal/etl/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run [stages...]",
	Short: "Run every stage once, or only the named ones",
	Long: `Run executes the ETL stages once and exits.

Stage names are case-insensitive and accept both canonical names
(currency, news, brazilian_stocks, nasdaq_stocks, crypto) and the
legacy class names (CurrencyETL, NewsETL, ...). A failing stage does
not stop the others and does not change the exit code.`,
	Run: runETL,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "write to an in-memory store instead of the database")
	rootCmd.AddCommand(runCmd)
}

func runETL(cmd *cobra.Command, args []string) {
	cfg, log := bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.Build(ctx, cfg, log, control.BuildOptions{DryRun: dryRun})
	if err != nil {
		log.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Failed to close pipeline", "error", err)
		}
	}()

	if len(args) == 0 {
		app.Orchestrator.RunAll(ctx)
	} else {
		app.Orchestrator.RunSubset(ctx, args)
	}

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			log.Warn("Failed to push metrics", "error", err)
		}
	}
}
