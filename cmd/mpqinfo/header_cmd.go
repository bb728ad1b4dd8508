// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-mpqinfo/internal/render"
)

func headerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "header <archive>",
		Short: "Show the user data and archive header",
		Long: `Show the user data preamble, if any, and the archive header.

Table offsets are printed relative to the header, with their high words
already applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.report(args[0], openMode{})
			if err != nil {
				return err
			}
			r.Tables = nil
			r.Warnings = nil
			return render.Write(cmd.OutOrStdout(), a.cfg.Format, r)
		},
	}
}
