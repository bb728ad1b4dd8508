// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command mpqinfo prints the structure of MPQ archives: user data, header
// and the hash, block, hi-block, HET and BET tables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	mpq "github.com/suprsokr/go-mpqinfo"
	"github.com/suprsokr/go-mpqinfo/internal/config"
	"github.com/suprsokr/go-mpqinfo/internal/render"
	"github.com/suprsokr/go-mpqinfo/internal/source"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the settings shared by all commands.
type app struct {
	configPath  string
	format      string
	logLevel    string
	searchLimit int64

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "mpqinfo",
		Short:   "mpqinfo - inspect MPQ archive structure",
		Long:    "mpqinfo decodes the header and tables of MPQ archives without extracting files.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flags.StringVar(&a.format, "format", "", "output format: text, json, yaml or cbor")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.Int64Var(&a.searchLimit, "search-limit", 0, "bytes to scan past the start of the file for a header")

	cmd.AddCommand(
		headerCmd(a),
		tablesCmd(a),
		inspectCmd(a),
		versionCmd(),
	)
	return cmd
}

// setup loads the config file, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		a.cfg.Format = a.format
	}
	if flags.Changed("log-level") {
		a.cfg.LogLevel = a.logLevel
	}
	if flags.Changed("search-limit") {
		a.cfg.SearchLimit = a.searchLimit
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return err
		}
		a.cfg.Jobs = jobs
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

type openMode struct {
	detail      []mpq.TableKind
	fingerprint bool
}

// report opens the archive at path and summarizes it. The source is
// released before returning; reports never reference it.
func (a *app) report(path string, mode openMode) (*render.Report, error) {
	f, err := source.Open(path, source.Options{MaxInflated: a.cfg.MaxInflated})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logger := a.logger.With(slog.String("file", path))
	logger.Debug("opened source",
		slog.Int64("size", f.Size()),
		slog.String("compression", f.Compression().String()))

	archive, err := mpq.Open(f, mpq.WithLogger(logger), mpq.WithHeaderSearch(a.cfg.SearchLimit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r := render.NewReport(path, archive, mode.detail...)
	r.Compression = f.Compression().String()
	if mode.fingerprint {
		r.Fingerprint = f.Fingerprint()
	}
	return r, nil
}
