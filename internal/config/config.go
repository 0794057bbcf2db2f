// Package config loads the server's static configuration the way the
// teacher loads worker configuration: defaults, then a YAML file, then
// environment variables with a prefix, via spf13/viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all static configuration required by the control-plane
// server process (cmd/server).
type Config struct {
	RunRoot         string        `mapstructure:"run_root"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	SimConcurrency  int           `mapstructure:"sim_concurrency"`
	RisConcurrency  int           `mapstructure:"ris_concurrency"`
	VRAMThresholdPct float64      `mapstructure:"vram_threshold_pct"`
	SimWorkerBin    string        `mapstructure:"sim_worker_bin"`
	RisWorkerBin    string        `mapstructure:"ris_worker_bin"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

// Load reads configuration from config.yml (searched under path) and
// environment variables. Priority: Env Vars > Config File > Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("run_root", "./runs")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("sim_concurrency", 1)
	v.SetDefault("ris_concurrency", 1)
	v.SetDefault("vram_threshold_pct", 90.0)
	v.SetDefault("sim_worker_bin", "simworker")
	v.SetDefault("ris_worker_bin", "riseworker")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("log_level", "info")

	// 2. Load from File
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(path)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// It's okay if config file is missing, provided env vars are set.
	}

	// 3. Load from Environment Variables
	// Example: run_root becomes SIMBENCH_RUN_ROOT.
	v.SetEnvPrefix("SIMBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// 5. Validation & Post-Processing
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SimConcurrency < 1 {
		return errors.New("configuration 'sim_concurrency' must be >= 1")
	}
	if cfg.RisConcurrency < 1 {
		return errors.New("configuration 'ris_concurrency' must be >= 1")
	}

	// Ensure run_root exists or can be created.
	if err := os.MkdirAll(cfg.RunRoot, 0o755); err != nil {
		return fmt.Errorf("unable to create run_root at %s: %w", cfg.RunRoot, err)
	}

	return nil
}
