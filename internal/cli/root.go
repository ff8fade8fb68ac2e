package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/marketetl/internal/core/config"
	"github.com/vietddude/marketetl/internal/logging"
)

var (
	cfgPath string
	isDebug bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "marketetl [stages...]",
	Short: "Market data ETL",
	Long: `marketetl pulls currency quotes, market news, Brazilian and NASDAQ equity
history and crypto prices from public APIs and loads them into a SQL database.

With no subcommand it behaves like "run".`,
	Args: cobra.ArbitraryArgs,
	Run:  runETL,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "write to an in-memory store instead of the database")
}

// bootstrap loads .env and the config file and installs the logger. It exits
// the process on failure.
func bootstrap() (*config.AppConfig, logging.Logger) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	l := logging.Setup(cfg.Logging.Level, isDebug)
	return cfg, logging.New(l)
}
