// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/suprsokr/go-mpqinfo/internal/render"
)

func inspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <archive>...",
		Short: "Summarize one or more archives",
		Long: `Summarize each archive: format version, anchor, table states and
warnings, plus a BLAKE3 fingerprint of the archive bytes.

Archives are decoded in parallel. An archive that cannot be opened is
reported and does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := make([]*render.Report, len(args))

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(a.cfg.Jobs)
			for i, path := range args {
				eg.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					r, err := a.report(path, openMode{fingerprint: true})
					if err != nil {
						a.logger.Warn("inspect failed", slog.String("file", path), slog.Any("error", err))
						r = render.Failed(path, err)
					}
					reports[i] = r
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			if err := render.Write(cmd.OutOrStdout(), a.cfg.Format, reports...); err != nil {
				return err
			}

			failed := 0
			for _, r := range reports {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d archives could not be opened", failed, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().Int("jobs", 0, "archives to decode at once (default from config)")
	return cmd
}
