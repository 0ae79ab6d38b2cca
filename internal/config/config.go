package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"

	"pills-bot/internal/pdf"
)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramDebug    bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE"`

	// Storage
	DatabaseURL       string        `env:"DATABASE_URL" envDefault:"sqlite://data/pills.db"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Report
	ReportTimezone      string   `env:"REPORT_TIMEZONE" envDefault:"Local"`
	ReportFontPaths     []string `env:"REPORT_FONT_PATHS" envSeparator:":"`
	ReportRatePerMinute float64  `env:"REPORT_RATE_PER_MINUTE" envDefault:"4"`
	ReportBurst         int      `env:"REPORT_BURST" envDefault:"2"`

	// Sessions and maintenance
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 5m"`

	// Ops
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

// New parses the environment and exits the process on malformed values.
func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves REPORT_TIMEZONE; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" || c.ReportTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	return loc, nil
}

// FontPaths is the configured search list or the built-in one.
func (c *Config) FontPaths() []string {
	if len(c.ReportFontPaths) > 0 {
		return c.ReportFontPaths
	}
	return pdf.DefaultFontPaths
}

// ValidateBot checks settings needed only by the long-running bot.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return ErrMissingToken
	}
	return nil
}
