package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"market-curves/internal/curve"
	"market-curves/internal/data"
)

// EnvPrefix namespaces environment overrides, e.g. CURVES_API_PORT.
const EnvPrefix = "CURVES"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	Data    DataConfig    `yaml:"data"`
	Curves  CurvesConfig  `yaml:"curves"`
	Batch   BatchConfig   `yaml:"batch"`
	Weather WeatherConfig `yaml:"weather"`
	Store   StoreConfig   `yaml:"store"`
	Publish PublishConfig `yaml:"publish"`
	API     APIConfig     `yaml:"api"`
}

type DataConfig struct {
	// Input file path with {year} and {month} placeholders.
	InputPathFormat string `yaml:"input_path_format" validate:"required"`
	IntervalsPerDay int    `yaml:"intervals_per_day" validate:"gte=1"`
	RegionsFile     string `yaml:"regions_file"`
}

type CurvesConfig struct {
	GridStep      float64 `yaml:"grid_step" validate:"gt=0"`
	MaxGridPoints int     `yaml:"max_grid_points" validate:"gte=1"`
}

type BatchConfig struct {
	Years       []int  `yaml:"years" validate:"dive,gte=1900,lte=2200"`
	Months      []int  `yaml:"months" validate:"dive,gte=1,lte=12"`
	Workers     int    `yaml:"workers" validate:"gte=0"`
	OutputDir   string `yaml:"output_dir" validate:"required"`
	SaveToStore bool   `yaml:"save_to_store"`
}

type WeatherConfig struct {
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=1"`
	RetryDelay  time.Duration `yaml:"retry_delay" validate:"gte=0"`
}

type StoreConfig struct {
	// Empty keeps the store in memory.
	Dir string `yaml:"dir"`
}

type PublishConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region" validate:"required_with=Bucket"`
	Prefix string `yaml:"prefix"`
}

type APIConfig struct {
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	GinMode        string   `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	return Config{
		LogLevel: "info",
		Data: DataConfig{
			InputPathFormat: filepath.Join("data", "{year}", "bids-offers-{year}-{month}.csv"),
			IntervalsPerDay: 48,
			RegionsFile:     filepath.Join("data", "regions.json"),
		},
		Curves: CurvesConfig{GridStep: curve.DefaultStep, MaxGridPoints: curve.DefaultMaxGridPoints},
		Batch: BatchConfig{
			Months:    []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
			OutputDir: "output",
		},
		Weather: WeatherConfig{
			BaseURL:     data.DefaultWeatherURL,
			MaxAttempts: data.DefaultMaxAttempts,
			RetryDelay:  data.DefaultRetryDelay,
		},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked applies defaults, the YAML file (if path is set) and environment
// overrides, but does not validate the result.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var file Config
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		c = Merge(c, file)
		// Relative paths are resolved against the config file directory when that exists.
		c.Data.RegionsFile = resolve(path, c.Data.RegionsFile)
	}
	applyEnv(&c)
	return &c, nil
}

func resolve(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config invalid: %w", err)
	}
	if !strings.Contains(c.Data.InputPathFormat, "{month}") {
		return errors.New("config invalid: data.input_path_format must contain {month}")
	}
	return nil
}

// Merge overlays non-zero fields from override onto base.
func Merge(base, override Config) Config {
	out := base
	if override.LogLevel != "" {
		out.LogLevel = override.LogLevel
	}

	if override.Data.InputPathFormat != "" {
		out.Data.InputPathFormat = override.Data.InputPathFormat
	}
	if override.Data.IntervalsPerDay != 0 {
		out.Data.IntervalsPerDay = override.Data.IntervalsPerDay
	}
	if override.Data.RegionsFile != "" {
		out.Data.RegionsFile = override.Data.RegionsFile
	}

	if override.Curves.GridStep != 0 {
		out.Curves.GridStep = override.Curves.GridStep
	}
	if override.Curves.MaxGridPoints != 0 {
		out.Curves.MaxGridPoints = override.Curves.MaxGridPoints
	}

	if len(override.Batch.Years) > 0 {
		out.Batch.Years = override.Batch.Years
	}
	if len(override.Batch.Months) > 0 {
		out.Batch.Months = override.Batch.Months
	}
	if override.Batch.Workers != 0 {
		out.Batch.Workers = override.Batch.Workers
	}
	if override.Batch.OutputDir != "" {
		out.Batch.OutputDir = override.Batch.OutputDir
	}
	if override.Batch.SaveToStore {
		out.Batch.SaveToStore = true
	}

	if override.Weather.BaseURL != "" {
		out.Weather.BaseURL = override.Weather.BaseURL
	}
	if override.Weather.MaxAttempts != 0 {
		out.Weather.MaxAttempts = override.Weather.MaxAttempts
	}
	if override.Weather.RetryDelay != 0 {
		out.Weather.RetryDelay = override.Weather.RetryDelay
	}

	if override.Store.Dir != "" {
		out.Store.Dir = override.Store.Dir
	}

	if override.Publish.Bucket != "" {
		out.Publish.Bucket = override.Publish.Bucket
	}
	if override.Publish.Region != "" {
		out.Publish.Region = override.Publish.Region
	}
	if override.Publish.Prefix != "" {
		out.Publish.Prefix = override.Publish.Prefix
	}

	if override.API.Port != 0 {
		out.API.Port = override.API.Port
	}
	if override.API.GinMode != "" {
		out.API.GinMode = override.API.GinMode
	}
	if len(override.API.AllowedOrigins) > 0 {
		out.API.AllowedOrigins = override.API.AllowedOrigins
	}
	return out
}

// applyEnv overlays CURVES_* environment variables, e.g. CURVES_STORE_DIR for store.dir.
func applyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	strs := map[string]*string{
		"log_level":              &c.LogLevel,
		"data.input_path_format": &c.Data.InputPathFormat,
		"data.regions_file":      &c.Data.RegionsFile,
		"batch.output_dir":       &c.Batch.OutputDir,
		"weather.base_url":       &c.Weather.BaseURL,
		"store.dir":              &c.Store.Dir,
		"publish.bucket":         &c.Publish.Bucket,
		"publish.region":         &c.Publish.Region,
		"publish.prefix":         &c.Publish.Prefix,
		"api.gin_mode":           &c.API.GinMode,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"data.intervals_per_day": &c.Data.IntervalsPerDay,
		"curves.max_grid_points": &c.Curves.MaxGridPoints,
		"batch.workers":          &c.Batch.Workers,
		"weather.max_attempts":   &c.Weather.MaxAttempts,
		"api.port":               &c.API.Port,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	if v.IsSet("curves.grid_step") {
		c.Curves.GridStep = v.GetFloat64("curves.grid_step")
	}
	if v.IsSet("weather.retry_delay") {
		c.Weather.RetryDelay = v.GetDuration("weather.retry_delay")
	}
	if v.IsSet("batch.save_to_store") {
		c.Batch.SaveToStore = v.GetBool("batch.save_to_store")
	}
	if v.IsSet("api.allowed_origins") {
		c.API.AllowedOrigins = strings.Split(v.GetString("api.allowed_origins"), ",")
	}
}
