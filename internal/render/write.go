// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// cborMode encodes with Core Deterministic Encoding, so a report always
// produces the same bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("render: CBOR encoder initialization failed: " + err.Error())
	}
}

// Write writes reports to w in format (text, json, yaml or cbor). A single
// report is encoded as an object, several as a list.
func Write(w io.Writer, format string, reports ...*Report) error {
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}

	switch format {
	case "text", "":
		return writeText(w, reports)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "cbor":
		return cborMode.NewEncoder(w).Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type styles struct {
	title, label, faint, ok, bad, warn lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		label: r.NewStyle().Width(22).Foreground(lipgloss.Color("245")),
		faint: r.NewStyle().Faint(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func writeText(w io.Writer, reports []*Report) error {
	st := newStyles(w)
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		st.report(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (st styles) field(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "  %s %v\n", st.label.Render(label), value)
}

func hexValue[T ~uint32 | ~uint64 | ~int64](v T) string {
	return "0x" + strings.ToUpper(strconv.FormatUint(uint64(v), 16))
}

func (st styles) report(b *strings.Builder, r *Report) {
	b.WriteString(st.title.Render(r.Path) + "\n")
	if r.Compression != "" && r.Compression != "none" {
		st.field(b, "compression", r.Compression)
	}
	if r.Fingerprint != "" {
		st.field(b, "blake3", r.Fingerprint)
	}
	if r.Error != "" {
		st.field(b, "error", st.bad.Render(r.Error))
		return
	}

	if u := r.UserData; u != nil {
		b.WriteString(st.title.Render("User data") + "\n")
		st.field(b, "offset", hexValue(u.Offset))
		st.field(b, "user data size", u.UserDataSize)
		st.field(b, "header offset", hexValue(u.HeaderOffset))
		st.field(b, "user data header", fmt.Sprintf("%d bytes", u.UserDataHeaderSize))
	}

	if h := r.Header; h != nil {
		b.WriteString(st.title.Render("Header") + "\n")
		st.field(b, "anchor", hexValue(r.Anchor))
		st.field(b, "format version", fmt.Sprintf("%d (V%d)", h.FormatVersion, h.FormatVersion+1))
		st.field(b, "header size", hexValue(h.HeaderSize))
		st.field(b, "archive size", h.ArchiveSize)
		st.field(b, "sector size", h.SectorSize)
		st.field(b, "hash table", fmt.Sprintf("%s (%d entries)", hexValue(h.HashTableOffset), h.HashTableEntries))
		st.field(b, "block table", fmt.Sprintf("%s (%d entries)", hexValue(h.BlockTableOffset), h.BlockTableEntries))
		if h.HiBlockTableOffset != 0 {
			st.field(b, "hi-block table", hexValue(h.HiBlockTableOffset))
		}
		if h.HETTableOffset != 0 {
			st.field(b, "HET table", hexValue(h.HETTableOffset))
		}
		if h.BETTableOffset != 0 {
			st.field(b, "BET table", hexValue(h.BETTableOffset))
		}
		if h.RawChunkSize != 0 {
			st.field(b, "raw chunk size", h.RawChunkSize)
		}
		for _, name := range []string{"block", "hash", "hi_block", "bet", "het", "header"} {
			if d, ok := h.Digests[name]; ok {
				st.field(b, name+" md5", st.faint.Render(d))
			}
		}
		if h.Unparsed > 0 {
			st.field(b, "unparsed", fmt.Sprintf("%d bytes", h.Unparsed))
		}
	}

	if len(r.Tables) > 0 {
		b.WriteString(st.title.Render("Tables") + "\n")
		for _, t := range r.Tables {
			state := t.State
			switch t.State {
			case "decoded":
				state = st.ok.Render(state)
			case "failed":
				state = st.bad.Render(state)
			default:
				state = st.faint.Render(state)
			}
			line := state
			if t.Offset != 0 {
				line += " at " + hexValue(t.Offset)
			}
			if t.State == "decoded" {
				line += fmt.Sprintf(", %d entries", t.Entries)
			}
			if t.Error != "" {
				line += ": " + t.Error
			}
			st.field(b, t.Table, line)
		}
	}

	for _, w := range r.Warnings {
		b.WriteString(st.warn.Render("warning: "+w) + "\n")
	}

	st.rows(b, r)
}

func (st styles) rows(b *strings.Builder, r *Report) {
	if r.HashEntries != nil {
		b.WriteString(st.title.Render("Hash table") + "\n")
		fmt.Fprintf(b, "  %6s  %-10s  %-10s  %-8s  %-8s  %-10s  %s\n",
			"index", "name_a", "name_b", "locale", "platform", "block", "status")
		for _, e := range r.HashEntries {
			fmt.Fprintf(b, "  %6d  %08X    %08X    %-8s  %-8d  %-10s  %s\n",
				e.Index, e.NameA, e.NameB, e.Locale, e.Platform, hexValue(e.BlockIndex), e.Status)
		}
	}
	if r.BlockEntries != nil {
		b.WriteString(st.title.Render("Block table") + "\n")
		fmt.Fprintf(b, "  %6s  %-12s  %-10s  %-10s  %s\n", "index", "offset", "stored", "real", "flags")
		for _, e := range r.BlockEntries {
			fmt.Fprintf(b, "  %6d  %-12s  %-10d  %-10d  %s\n",
				e.Index, hexValue(e.Offset), e.StoredSize, e.RealSize, e.Flags)
		}
	}
	if r.HiBlockEntries != nil {
		b.WriteString(st.title.Render("Hi-block table") + "\n")
		for i, hi := range r.HiBlockEntries {
			fmt.Fprintf(b, "  %6d  0x%04X\n", i, hi)
		}
	}
	if t := r.HET; t != nil {
		b.WriteString(st.title.Render("HET table") + "\n")
		st.field(b, "version", t.Version)
		st.field(b, "data size", t.DataSize)
		st.field(b, "max file count", t.MaxFileCount)
		st.field(b, "entries", fmt.Sprintf("%d (%d used)", t.EntryCount, t.UsedSlots))
		st.field(b, "name hash bits", t.EntrySize)
		st.field(b, "index bits", fmt.Sprintf("%d (%d total, %d extra)", t.IndexSize, t.TotalIndexSize, t.IndexSizeExtra))
		st.field(b, "index array", fmt.Sprintf("%d bytes", t.BlockTableSize))
	}
	if t := r.BET; t != nil {
		b.WriteString(st.title.Render("BET table") + "\n")
		st.field(b, "version", t.Version)
		st.field(b, "data size", t.DataSize)
		st.field(b, "entries", t.EntryCount)
		st.field(b, "entry bits", t.EntrySize)
		for _, f := range t.Fields {
			st.field(b, f.Name, fmt.Sprintf("bits %d+%d", f.Index, f.Width))
		}
		st.field(b, "hash bits", fmt.Sprintf("%d (%d total)", t.HashSize, t.TotalHashSize))
		st.field(b, "hash array", fmt.Sprintf("%d bytes", t.HashTableSize))
		for i, f := range t.Flags {
			st.field(b, fmt.Sprintf("flag[%d]", i), f)
		}
	}
}
