// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"log/slog"
)

// searchStep is the alignment at which an archive may start inside a larger file.
const searchStep = 0x200

// Option configures Open.
type Option func(*openOptions) error

type openOptions struct {
	logger      *slog.Logger
	start       int64
	searchLimit int64
}

func defaultOpenOptions() *openOptions {
	return &openOptions{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger that records table resolution.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		o.logger = logger
		return nil
	}
}

// WithAnchor sets the position at which Open looks for user data or the
// archive header. Default: 0.
func WithAnchor(pos int64) Option {
	return func(o *openOptions) error {
		if pos < 0 {
			return fmt.Errorf("negative anchor %d", pos)
		}
		o.start = pos
		return nil
	}
}

// WithHeaderSearch makes Open scan every 512-byte boundary from the anchor up
// to limit bytes further for user data or a header, as archives appended to
// executables require. Default: 0, only the anchor itself is probed.
func WithHeaderSearch(limit int64) Option {
	return func(o *openOptions) error {
		if limit < 0 {
			return fmt.Errorf("negative search limit %d", limit)
		}
		o.searchLimit = limit
		return nil
	}
}
