// Package config resolves run settings from flags, SCRUPER_* environment variables, an optional
// .env file and an optional scruper.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SCRUPER"

// Config is the resolved configuration of one run.
type Config struct {
	Hours          int
	Output         string
	ErrorLog       string
	FeedsFile      string
	PublishersFile string
	Store          StoreConfig
	HTTP           HTTPConfig
	Fetch          FetchConfig
	Log            LogConfig
	Metrics        MetricsConfig
}

type StoreConfig struct {
	Backend  string
	BoltPath string
}

type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type FetchConfig struct {
	Workers int
	Spacing time.Duration
}

type LogConfig struct {
	Level       string
	Development bool
}

type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hours", 24)
	v.SetDefault("output", ".tmp/articles.json")
	v.SetDefault("error_log", ".tmp/errors.log")
	v.SetDefault("feeds_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("store.backend", "json")
	v.SetDefault("store.bolt_path", ".tmp/articles.db")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("fetch.workers", 1)
	v.SetDefault("fetch.spacing", time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "scruper")
}

// Load parses args (without the program name) and resolves the configuration. Precedence is
// flag, environment, config file, default. A .env file in the working directory seeds the
// environment without overriding it.
func Load(args []string) (Config, error) {
	return load(args, ".env")
}

func load(args []string, envFile string) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	flags := flag.NewFlagSet("scruper", flag.ContinueOnError)
	flags.Int("hours", 24, "recency window in hours")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlag("hours", flags.Lookup("hours")); err != nil {
		return Config{}, fmt.Errorf("bind hours flag: %w", err)
	}

	if err := readConfigFile(v); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Hours:          v.GetInt("hours"),
		Output:         strings.TrimSpace(v.GetString("output")),
		ErrorLog:       strings.TrimSpace(v.GetString("error_log")),
		FeedsFile:      strings.TrimSpace(v.GetString("feeds_file")),
		PublishersFile: strings.TrimSpace(v.GetString("publishers_file")),
		Store: StoreConfig{
			Backend:  strings.ToLower(strings.TrimSpace(v.GetString("store.backend"))),
			BoltPath: strings.TrimSpace(v.GetString("store.bolt_path")),
		},
		HTTP: HTTPConfig{
			Timeout:   v.GetDuration("http.timeout"),
			UserAgent: v.GetString("http.user_agent"),
		},
		Fetch: FetchConfig{
			Workers: v.GetInt("fetch.workers"),
			Spacing: v.GetDuration("fetch.spacing"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: strings.TrimSpace(v.GetString("metrics.pushgateway_url")),
			Job:            strings.TrimSpace(v.GetString("metrics.job")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// readConfigFile reads SCRUPER_CONFIG when set, otherwise an optional ./scruper.{yaml,json,...}.
func readConfigFile(v *viper.Viper) error {
	if path := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("scruper")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate rejects settings the run cannot work with.
func (c Config) Validate() error {
	if c.Hours < 0 {
		return fmt.Errorf("hours must not be negative, got %d", c.Hours)
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if c.ErrorLog == "" {
		return errors.New("error_log path is required")
	}
	switch c.Store.Backend {
	case "json":
	case "bolt":
		if c.Store.BoltPath == "" {
			return errors.New("store.bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1, got %d", c.Fetch.Workers)
	}
	if c.Fetch.Spacing < 0 {
		return errors.New("fetch.spacing must not be negative")
	}
	return nil
}
