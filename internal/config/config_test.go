package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pills-bot/internal/pdf"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestParse_Defaults(t *testing.T) {
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REPORT_TIMEZONE", "REPORT_FONT_PATHS", "SESSION_TTL"} {
		unsetenv(t, k)
	}

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "sqlite://data/pills.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, 4.0, cfg.ReportRatePerMinute)
	assert.Equal(t, pdf.DefaultFontPaths, cfg.FontPaths())
	assert.ErrorIs(t, cfg.ValidateBot(), ErrMissingToken)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/pills?sslmode=disable")
	t.Setenv("REPORT_TIMEZONE", "UTC")
	t.Setenv("REPORT_FONT_PATHS", "/a.ttf:/b.ttf")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateBot())
	assert.Equal(t, []string{"/a.ttf", "/b.ttf"}, cfg.FontPaths())
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.DBMaxOpenConns)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestParse_BadTimezone(t *testing.T) {
	t.Setenv("REPORT_TIMEZONE", "Mars/Olympus")
	_, err := Parse()
	assert.Error(t, err)
}
