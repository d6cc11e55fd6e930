package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BOOKCRAWL_MAX_PAGES.
const EnvPrefix = "BOOKCRAWL"

// Load reads configuration from defaults, an optional YAML file and the
// environment. Priority (highest to lowest): env vars > config file > defaults.
// An explicit path that cannot be read is an error; a missing file in the
// default search locations is not.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bookcrawl")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "bookcrawl"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("start_url", cfg.StartURL)
	v.SetDefault("max_pages", cfg.MaxPages)
	v.SetDefault("delay", cfg.Delay)
	v.SetDefault("random_delay", cfg.RandomDelay)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("retry_backoff", cfg.RetryBackoff)
	v.SetDefault("retry_backoff_max", cfg.RetryBackoffMax)
	v.SetDefault("output_file", cfg.OutputFile)
	v.SetDefault("output_format", cfg.OutputFormat)
	v.SetDefault("batch_size", cfg.BatchSize)
	v.SetDefault("dedupe_max_size", cfg.DedupeMaxSize)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("respect_robots_txt", cfg.RespectRobotsTxt)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("verbose", cfg.Verbose)
}
