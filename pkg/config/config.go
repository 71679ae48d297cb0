package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// maxLookbackDays bounds how far back a run may reach, to bound cost on the
// paginated home-market endpoint.
const maxLookbackDays = 10 * 365

// Config holds service configuration. Every ambient default the pipeline
// relies on lives here, not in package-level globals.
type Config struct {
	ADRTicker    string `envconfig:"ADR_TICKER" default:"TSM"`
	FXTicker     string `envconfig:"FX_TICKER" default:"TWD=X"`
	TWSEStockNo  string `envconfig:"TWSE_STOCK_NO" default:"2330"`
	LookbackDays int    `envconfig:"LOOKBACK_DAYS" default:"200"`

	// SharesPerADR is the number of home-market shares one ADR represents.
	// A market-convention fact, not a constant: it changes on ratio events.
	SharesPerADR decimal.Decimal `envconfig:"SHARES_PER_ADR" default:"5"`

	// CourtesyDelay is slept before the home-market fetch when it follows
	// another network-bound fetch, to stay under upstream rate limits.
	CourtesyDelay time.Duration `envconfig:"COURTESY_DELAY" default:"10s"`
	MonthDelay    time.Duration `envconfig:"MONTH_DELAY" default:"3s"`

	OutputPath string `envconfig:"OUTPUT_PATH" default:"data/merged.csv"`
	LogFile    string `envconfig:"LOG_FILE" default:"adrpulse.log"`

	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	WebhookURL string `envconfig:"DISCORD_WEBHOOK"`
	ChartURL   string `envconfig:"CHART_URL"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.LookbackDays <= 0 {
		return Config{}, fmt.Errorf("LOOKBACK_DAYS must be positive, got %d", cfg.LookbackDays)
	}
	if cfg.LookbackDays > maxLookbackDays {
		cfg.LookbackDays = maxLookbackDays
	}
	if !cfg.SharesPerADR.IsPositive() {
		return Config{}, fmt.Errorf("SHARES_PER_ADR must be positive, got %s", cfg.SharesPerADR)
	}
	return cfg, nil
}
