// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package config loads mpqinfo settings from a YAML file.
//
// The file is optional. Values start from Default, the file (given with
// --config or MPQINFO_CONFIG) is merged over them, and command-line flags
// override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "MPQINFO_CONFIG"

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml", "cbor"}

// Config holds mpqinfo settings.
type Config struct {
	// Format selects the output encoding: text, json, yaml or cbor.
	Format string `yaml:"format"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// SearchLimit is how far past the start of a file to scan for a header,
	// in bytes. Zero probes offset 0 only.
	SearchLimit int64 `yaml:"search_limit"`

	// Jobs bounds how many archives inspect decodes at once.
	Jobs int `yaml:"jobs"`

	// MaxInflated bounds the size of decompressed .gz/.zst/.xz/.lz4 inputs.
	MaxInflated int64 `yaml:"max_inflated"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Format:      "text",
		LogLevel:    "warn",
		SearchLimit: 0,
		Jobs:        4,
		MaxInflated: 4 << 30,
	}
}

// Load reads the file named by MPQINFO_CONFIG, or returns Default when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile merges the YAML file at path over Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(Formats, c.Format) {
		errs = append(errs, fmt.Errorf("format must be one of: %v", Formats))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.SearchLimit < 0 {
		errs = append(errs, fmt.Errorf("search_limit must not be negative"))
	}
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1"))
	}
	if c.MaxInflated <= 0 {
		errs = append(errs, fmt.Errorf("max_inflated must be positive"))
	}

	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
