// Package main provides the gauger command line interface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/gauger/internal/config"
	"github.com/yourusername/gauger/internal/database"
	"github.com/yourusername/gauger/internal/logger"
	"github.com/yourusername/gauger/internal/marketdata"
	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/repository"
	"github.com/yourusername/gauger/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile   string
	outputFormat string
	appLog       *logrus.Logger
	cfg          *config.Config
	provider     marketdata.Provider
	analyzer     *service.Analyzer
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or yaml")

	rootCmd.AddCommand(
		newWinRatesCmd(),
		newStockDataCmd(),
		newPercentileCmd(),
		newBetScheduleCmd(),
		newDistributionCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newPruneCmd(),
		newVersionCmd(),
	)
}

var rootCmd = &cobra.Command{
	Use:   "gauger",
	Short: "Gauge where prices sit against their moving averages",
	Long: `Estimates the distribution of price to moving-average ratios, reports the
win rate of the latest ratio and derives martingale bet schedules from it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if _, err := newRenderer(outputFormat); err != nil {
			return err
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies() error {
	appLog = logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	// Command output goes to stdout; keep logs off it.
	appLog.SetOutput(os.Stderr)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	var err error
	provider, err = marketdata.NewProvider(cfg.MarketData, appLog)
	if err != nil {
		return fmt.Errorf("failed to create market data provider: %w", err)
	}

	analyzer = service.NewAnalyzerFromConfig(provider, cfg.Analysis, appLog)
	return nil
}

// openRepositories connects to the database and ensures the schema exists
func openRepositories(ctx context.Context) (*database.DB, *repository.Repositories, error) {
	if !cfg.Database.Enabled {
		return nil, nil, fmt.Errorf("database is not enabled in configuration")
	}

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	appLog.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Database connection established")

	return db, repos, nil
}
