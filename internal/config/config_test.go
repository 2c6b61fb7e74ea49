package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
log_level: debug
data:
  input_path_format: "in/{year}/{month}.csv"
  intervals_per_day: 288
curves:
  grid_step: 0.25
batch:
  years: [2021, 2022]
  months: [1, 2]
  workers: 4
weather:
  retry_delay: 250ms
publish:
  bucket: curves
  region: ap-southeast-2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "in/{year}/{month}.csv", c.Data.InputPathFormat)
	assert.Equal(t, 288, c.Data.IntervalsPerDay)
	assert.Equal(t, 0.25, c.Curves.GridStep)
	assert.Equal(t, []int{2021, 2022}, c.Batch.Years)
	assert.Equal(t, []int{1, 2}, c.Batch.Months)
	assert.Equal(t, 4, c.Batch.Workers)
	assert.Equal(t, 250*time.Millisecond, c.Weather.RetryDelay)

	// untouched sections keep their defaults
	assert.Equal(t, "output", c.Batch.OutputDir)
	assert.Equal(t, 3, c.Weather.MaxAttempts)
	assert.Equal(t, 8080, c.API.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CURVES_API_PORT", "9090")
	t.Setenv("CURVES_STORE_DIR", "/var/lib/curves")
	t.Setenv("CURVES_CURVES_GRID_STEP", "1.5")
	t.Setenv("CURVES_CURVES_MAX_GRID_POINTS", "5000")
	t.Setenv("CURVES_WEATHER_RETRY_DELAY", "2s")
	t.Setenv("CURVES_API_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.API.Port)
	assert.Equal(t, "/var/lib/curves", c.Store.Dir)
	assert.Equal(t, 1.5, c.Curves.GridStep)
	assert.Equal(t, 5000, c.Curves.MaxGridPoints)
	assert.Equal(t, 2*time.Second, c.Weather.RetryDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.API.AllowedOrigins)
}

func TestLoadWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Data, c.Data)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero step", func(c *Config) { c.Curves.GridStep = 0 }},
		{"zero grid points", func(c *Config) { c.Curves.MaxGridPoints = 0 }},
		{"month 13", func(c *Config) { c.Batch.Months = []int{1, 13} }},
		{"negative workers", func(c *Config) { c.Batch.Workers = -1 }},
		{"no month placeholder", func(c *Config) { c.Data.InputPathFormat = "in/{year}.csv" }},
		{"bucket without region", func(c *Config) { c.Publish.Bucket = "b" }},
		{"bad port", func(c *Config) { c.API.Port = 70000 }},
		{"bad weather url", func(c *Config) { c.Weather.BaseURL = "not a url" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := Default()
	assert.NoError(t, c.Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "curves: [not, a, map]"))
	assert.Error(t, err)
}
