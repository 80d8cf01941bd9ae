// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"flag"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config holds settings shared by all subcommands. Values come from
// DefaultConfig, then the YAML file named by $CELLFREQ_CONFIG (if
// any), then CELLFREQ_* environment variables, then command line
// flags.
type Config struct {
	DSN              string `yaml:"dsn" split_words:"true"`
	OutputDir        string `yaml:"output_dir" split_words:"true"`
	Gzip             bool   `yaml:"gzip" split_words:"true"`
	DegeneratePolicy string `yaml:"degenerate_policy" split_words:"true"`
	Workbook         bool   `yaml:"workbook" split_words:"true"`
	MetricsTextfile  string `yaml:"metrics_textfile" split_words:"true"`
	LogLevel         string `yaml:"log_level" split_words:"true"`
}

func DefaultConfig() Config {
	return Config{
		DSN:              "data/cell_info.db",
		OutputDir:        "data",
		DegeneratePolicy: string(SkipDegenerate),
		Workbook:         true,
		LogLevel:         "info",
	}
}

const envPrefix = "CELLFREQ"

// LoadConfig returns the configuration from defaults, the optional
// YAML file, and the environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if fnm := os.Getenv(envPrefix + "_CONFIG"); fnm != "" {
		buf, err := os.ReadFile(fnm)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", fnm, err)
		}
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config from environment: %w", err)
	}
	return cfg, nil
}

// Flags adds flags that override the loaded settings.
func (cfg *Config) Flags(flags *flag.FlagSet) {
	flags.StringVar(&cfg.DSN, "db", cfg.DSN, "sqlite database `file` or postgres:// URL")
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "output `directory`")
	flags.BoolVar(&cfg.Gzip, "gzip", cfg.Gzip, "write gzip-compressed .csv.gz tables")
	flags.StringVar(&cfg.DegeneratePolicy, "degenerate", cfg.DegeneratePolicy, "what to do with samples whose total count is 0 (`skip` or abort)")
	flags.BoolVar(&cfg.Workbook, "workbook", cfg.Workbook, "also write all tables to report.xlsx (run only)")
	flags.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "write run metrics in prometheus text format to `file` (run only)")
	flags.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
}

// Check validates the settings and applies the log level.
func (cfg *Config) Check() error {
	if cfg.DSN == "" {
		return fmt.Errorf("no database specified")
	}
	if _, err := ParseDegeneratePolicy(cfg.DegeneratePolicy); err != nil {
		return err
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}
