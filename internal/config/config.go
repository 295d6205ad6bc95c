package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/preprocess"
	"rms_pipeline/internal/service"
)

// Run modes.
const (
	ModeBatch  = "batch"
	ModeServe  = "serve"
	ModeImport = "import"
)

// Input sources.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

const envPrefix = "RMS"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Mode     string         `mapstructure:"mode"`
	Port     string         `mapstructure:"port"`
	LogLevel string         `mapstructure:"log_level"`
	Data     DataConfig     `mapstructure:"data"`
	Output   OutputConfig   `mapstructure:"output"`
	Outlier  OutlierConfig  `mapstructure:"outlier"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Alarms   AlarmsConfig   `mapstructure:"alarms"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type DataConfig struct {
	Source string `mapstructure:"source"`
	Dir    string `mapstructure:"dir"`
	DBPath string `mapstructure:"db_path"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type OutlierConfig struct {
	Sensitivity float64 `mapstructure:"sensitivity"`
	WindowHours float64 `mapstructure:"window_hours"`
	Window      string  `mapstructure:"window"` // ISO 8601, e.g. PT90M; overrides window_hours
}

type PipelineConfig struct {
	Workers       int           `mapstructure:"workers"`
	ColumnWorkers int           `mapstructure:"column_workers"`
	FailFast      bool          `mapstructure:"fail_fast"`
	UnitTimeout   time.Duration `mapstructure:"unit_timeout"`
}

type AlarmsConfig struct {
	WarningToken string `mapstructure:"warning_token"`
	ErrorToken   string `mapstructure:"error_token"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	KeyHash    string        `mapstructure:"key_hash"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeBatch)
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", logger.InfoLevel)
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.db_path", "rms.db")
	v.SetDefault("output.dir", "")
	v.SetDefault("outlier.sensitivity", preprocess.DefaultSensitivity)
	v.SetDefault("outlier.window_hours", 1.0)
	v.SetDefault("outlier.window", "")
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.column_workers", 0)
	v.SetDefault("pipeline.fail_fast", false)
	v.SetDefault("pipeline.unit_timeout", time.Duration(0))
	v.SetDefault("alarms.warning_token", preprocess.DefaultWarningToken)
	v.SetDefault("alarms.error_token", preprocess.DefaultErrorToken)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.key_hash", "")
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads path, or configs/config.yml when path is empty, then applies
// RMS_* environment overrides (RMS_OUTLIER_SENSITIVITY, RMS_DATA_DIR, ...)
// and finally flags whose name is a config key ("mode", "data.dir"). Only
// flags the user actually set override the file. flags may be nil.
// A missing default config file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.Data.Source = strings.ToLower(strings.TrimSpace(cfg.Data.Source))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Window resolves the outlier half-window: the ISO 8601 value when set,
// window_hours otherwise.
func (c *Config) Window() (time.Duration, error) {
	if s := strings.TrimSpace(c.Outlier.Window); s != "" {
		d, err := duration.Parse(s)
		if err != nil {
			return 0, fmt.Errorf("%w: outlier.window %q: %v", ErrInvalid, s, err)
		}
		return d.ToTimeDuration(), nil
	}
	h := c.Outlier.WindowHours
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		return 0, fmt.Errorf("%w: outlier.window_hours must be a finite value >= 0", ErrInvalid)
	}
	return preprocess.WindowFromHours(h), nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBatch, ModeServe, ModeImport:
	default:
		return fmt.Errorf("%w: mode %q", ErrInvalid, c.Mode)
	}
	switch c.Data.Source {
	case SourceCSV, SourceSQLite:
	default:
		return fmt.Errorf("%w: data.source %q", ErrInvalid, c.Data.Source)
	}
	if (c.Data.Source == SourceCSV || c.Mode == ModeImport) && c.Data.Dir == "" {
		return fmt.Errorf("%w: data.dir is required", ErrInvalid)
	}
	if (c.Data.Source == SourceSQLite || c.Mode == ModeImport) && c.Data.DBPath == "" {
		return fmt.Errorf("%w: data.db_path is required", ErrInvalid)
	}
	if c.Pipeline.Workers < 0 || c.Pipeline.ColumnWorkers < 0 {
		return fmt.Errorf("%w: pipeline workers must be >= 0", ErrInvalid)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("%w: auth.token_ttl must be >= 0", ErrInvalid)
	}
	if _, err := c.Window(); err != nil {
		return err
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Params builds the pipeline parameters. Call after Validate.
func (c *Config) Params() service.Params {
	window, _ := c.Window()
	return service.Params{
		Outlier: preprocess.OutlierConfig{
			Sensitivity: c.Outlier.Sensitivity,
			Window:      window,
		},
		Alarms: preprocess.AlignerConfig{
			WarningToken: c.Alarms.WarningToken,
			ErrorToken:   c.Alarms.ErrorToken,
		},
		Workers:       c.Pipeline.Workers,
		ColumnWorkers: c.Pipeline.ColumnWorkers,
		FailFast:      c.Pipeline.FailFast,
		UnitTimeout:   c.Pipeline.UnitTimeout,
	}
}

func (c *Config) AuthConfig() service.AuthConfig {
	return service.AuthConfig{
		SigningKey: c.Auth.SigningKey,
		KeyHash:    c.Auth.KeyHash,
		TokenTTL:   c.Auth.TokenTTL,
	}
}
