package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/feed"
	"github.com/Ruscigno/ADRPulse/logging"
	"github.com/Ruscigno/ADRPulse/pkg/config"
	"github.com/Ruscigno/ADRPulse/pkg/notify"
	"github.com/Ruscigno/ADRPulse/pkg/pipeline"
	"github.com/Ruscigno/ADRPulse/pkg/storage"
)

func main() {
	// Local runs keep secrets in a .env file; absence is fine.
	_ = godotenv.Load()
	viper.SetDefault(logging.LOG_LEVEL, "debug")
	viper.AutomaticEnv()

	cfg, err := config.Load()
	if err != nil {
		logger := logging.SetupLogger("adrpulse.log")
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger := logging.SetupLogger(cfg.LogFile)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sink := storage.NewCSVStore(cfg.OutputPath, logger)
	p := pipeline.New(cfg,
		feed.NewYahooFetcher(cfg.ADRTicker),
		feed.NewYahooFetcher(cfg.FXTicker),
		feed.NewTWSEFetcher(cfg.TWSEStockNo, cfg.MonthDelay),
		sink,
		logger,
	)

	if cfg.DatabaseURL != "" {
		history, err := storage.NewHistoryStore(cfg.DatabaseURL, cfg.MigrationsPath, logger)
		if err != nil {
			logger.Fatal("Failed to connect to history database", zap.Error(err))
		}
		defer history.Close()
		p.WithHistory(history)
	}

	if cfg.WebhookURL != "" {
		p.WithNotifier(notify.NewDiscordNotifier(cfg.WebhookURL, cfg.ChartURL, logger))
	}

	if _, err := p.Run(context.Background()); err != nil {
		logger.Fatal("Pipeline run failed", zap.Error(err))
	}
}
