// Package config loads the service configuration from YAML and AIRSPACE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"airspace_fan/internal/logger"
)

// EnvPrefix is prepended to environment overrides, e.g. AIRSPACE_DB_PATH.
const EnvPrefix = "AIRSPACE"

type Config struct {
	Port       string           `mapstructure:"port"`
	LogLevel   string           `mapstructure:"log_level"`
	DB         DBConfig         `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Mail       MailConfig       `mapstructure:"mail"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	// PIN, when set, replaces the stored pairing PIN at startup.
	PIN string `mapstructure:"pin"`
}

type ScanConfig struct {
	CIDR           string        `mapstructure:"cidr"`
	Hosts          []string      `mapstructure:"hosts"`
	Port           int           `mapstructure:"port"`
	Workers        int           `mapstructure:"workers"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

type SchedulerConfig struct {
	WindowID       string        `mapstructure:"window_id"`
	Budget         time.Duration `mapstructure:"budget"`
	HostExpiry     time.Duration `mapstructure:"host_expiry"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	ForegroundTick time.Duration `mapstructure:"foreground_tick"`
}

// ThresholdsConfig seeds the stored bounds on first start.
type ThresholdsConfig struct {
	Low     float64 `mapstructure:"low"`
	High    float64 `mapstructure:"high"`
	Enabled bool    `mapstructure:"enabled"`
}

type WeatherConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	BaseURL   string  `mapstructure:"base_url"`
}

// Enabled reports whether coordinates were given for the forecast source.
func (w WeatherConfig) Enabled() bool { return w.Latitude != 0 || w.Longitude != 0 }

type MailConfig struct {
	Domain     string   `mapstructure:"domain"`
	APIKey     string   `mapstructure:"api_key"`
	Sender     string   `mapstructure:"sender"`
	Recipients []string `mapstructure:"recipients"`
	OnlyAlerts bool     `mapstructure:"only_alerts"`
}

// Enabled reports whether e-mail alerts are configured.
func (m MailConfig) Enabled() bool { return m.Domain != "" }

var (
	ErrNoScanTargets = errors.New("config: scan.cidr or scan.hosts is required")
	ErrBudget        = errors.New("config: scheduler.budget must be below scheduler.host_expiry")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", logger.InfoLevel)
	v.SetDefault("db.path", "airspace.db")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("scan.port", 80)
	v.SetDefault("scan.workers", 32)
	v.SetDefault("scan.probe_timeout", 2*time.Second)
	v.SetDefault("scan.command_timeout", 5*time.Second)
	v.SetDefault("scheduler.window_id", "temperature-out-of-range")
	v.SetDefault("scheduler.budget", 25*time.Second)
	v.SetDefault("scheduler.host_expiry", 30*time.Second)
	v.SetDefault("scheduler.min_interval", 15*time.Minute)
	v.SetDefault("scheduler.foreground_tick", 30*time.Second)
	v.SetDefault("thresholds.low", 55.0)
	v.SetDefault("thresholds.high", 75.0)
	v.SetDefault("weather.base_url", "https://api.open-meteo.com")
}

// Load reads path (or configs/config.yml when empty), applies environment
// overrides and defaults, then the given overrides, and validates the result.
// A missing default file is not an error.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have no sensible default.
func (c Config) Validate() error {
	var errs []error
	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", c.LogLevel))
	}
	if c.Scan.CIDR == "" && len(c.Scan.Hosts) == 0 {
		errs = append(errs, ErrNoScanTargets)
	}
	if c.Scan.Port <= 0 || c.Scan.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: scan.port %d out of range", c.Scan.Port))
	}
	if c.Scheduler.Budget >= c.Scheduler.HostExpiry {
		errs = append(errs, ErrBudget)
	}
	if c.Thresholds.Low > c.Thresholds.High {
		errs = append(errs, errors.New("config: thresholds.low exceeds thresholds.high"))
	}
	if c.Mail.Enabled() && (c.Mail.APIKey == "" || c.Mail.Sender == "" || len(c.Mail.Recipients) == 0) {
		errs = append(errs, errors.New("config: mail needs api_key, sender and recipients"))
	}
	return errors.Join(errs...)
}
