package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/marketetl/internal/control"
)

var interval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on a schedule and expose health and metrics",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (overrides schedule.interval)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, log := bootstrap()
	if interval > 0 {
		cfg.Schedule.Interval = interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.Build(ctx, cfg, log, control.BuildOptions{})
	if err != nil {
		log.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}

	svc := control.NewService(app, cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := svc.Start(ctx); err != nil {
		log.Error("Failed to start service", "error", err)
		os.Exit(1)
	}

	log.Info("Service started", "config", cfgPath, "port", cfg.Server.Port, "interval", cfg.Schedule.Interval)

	sig := <-sigChan
	log.Info("Received signal, shutting down...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Service stopped gracefully")
}
