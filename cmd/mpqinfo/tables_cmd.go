// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mpq "github.com/suprsokr/go-mpqinfo"
	"github.com/suprsokr/go-mpqinfo/internal/render"
)

var allTables = []mpq.TableKind{mpq.TableHash, mpq.TableBlock, mpq.TableHiBlock, mpq.TableHET, mpq.TableBET}

func tablesCmd(a *app) *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:   "tables <archive>",
		Short: "Show the decoded table entries",
		Long: `Show the entries of the hash, block and hi-block tables and the
prologues of the HET and BET tables.

Hash and block tables are printed as stored. Archives that encrypt them
show scrambled values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail := allTables
			if len(names) > 0 {
				detail = nil
				for _, name := range names {
					kind, err := render.ParseTable(name)
					if err != nil {
						return err
					}
					detail = append(detail, kind)
				}
			}

			r, err := a.report(args[0], openMode{detail: detail})
			if err != nil {
				return err
			}
			if err := render.Write(cmd.OutOrStdout(), a.cfg.Format, r); err != nil {
				return err
			}

			for _, t := range r.Tables {
				if t.State == mpq.TableFailed.String() && wanted(detail, t.Table) {
					return fmt.Errorf("%s: %s could not be decoded", args[0], t.Table)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&names, "table", "t", nil, "tables to show: hash, block, hiblock, het, bet (default all)")
	return cmd
}

func wanted(kinds []mpq.TableKind, name string) bool {
	for _, k := range kinds {
		if k.String() == name {
			return true
		}
	}
	return false
}
