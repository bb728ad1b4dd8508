// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package render turns decoded archives into reports and writes them as
// text, JSON, YAML or CBOR.
package render

import (
	"encoding/hex"
	"errors"
	"fmt"

	mpq "github.com/suprsokr/go-mpqinfo"
)

// Report is the printable view of one archive.
type Report struct {
	Path        string `json:"path" yaml:"path" cbor:"path"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty" cbor:"compression,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty" cbor:"fingerprint,omitempty"`

	// Error is set when the archive could not be opened at all.
	Error string `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`

	Anchor   int64         `json:"anchor" yaml:"anchor" cbor:"anchor"`
	UserData *UserDataView `json:"user_data,omitempty" yaml:"user_data,omitempty" cbor:"user_data,omitempty"`
	Header   *HeaderView   `json:"header,omitempty" yaml:"header,omitempty" cbor:"header,omitempty"`
	Tables   []TableView   `json:"tables,omitempty" yaml:"tables,omitempty" cbor:"tables,omitempty"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty" cbor:"warnings,omitempty"`

	HashEntries    []HashRow  `json:"hash_entries,omitempty" yaml:"hash_entries,omitempty" cbor:"hash_entries,omitempty"`
	BlockEntries   []BlockRow `json:"block_entries,omitempty" yaml:"block_entries,omitempty" cbor:"block_entries,omitempty"`
	HiBlockEntries []uint16   `json:"hi_block_entries,omitempty" yaml:"hi_block_entries,omitempty" cbor:"hi_block_entries,omitempty"`
	HET            *HETView   `json:"het,omitempty" yaml:"het,omitempty" cbor:"het,omitempty"`
	BET            *BETView   `json:"bet,omitempty" yaml:"bet,omitempty" cbor:"bet,omitempty"`
}

// UserDataView describes the user data preamble.
type UserDataView struct {
	Offset             int64  `json:"offset" yaml:"offset" cbor:"offset"`
	UserDataSize       uint32 `json:"user_data_size" yaml:"user_data_size" cbor:"user_data_size"`
	HeaderOffset       uint32 `json:"header_offset" yaml:"header_offset" cbor:"header_offset"`
	UserDataHeaderSize uint32 `json:"user_data_header_size" yaml:"user_data_header_size" cbor:"user_data_header_size"`
	ContentSize        int    `json:"content_size" yaml:"content_size" cbor:"content_size"`
}

// HeaderView lists header fields with offsets already combined.
type HeaderView struct {
	FormatVersion     uint16 `json:"format_version" yaml:"format_version" cbor:"format_version"`
	HeaderSize        uint32 `json:"header_size" yaml:"header_size" cbor:"header_size"`
	ArchiveSize       uint64 `json:"archive_size" yaml:"archive_size" cbor:"archive_size"`
	SectorSize        uint32 `json:"sector_size" yaml:"sector_size" cbor:"sector_size"`
	HashTableOffset   uint64 `json:"hash_table_offset" yaml:"hash_table_offset" cbor:"hash_table_offset"`
	HashTableEntries  uint32 `json:"hash_table_entries" yaml:"hash_table_entries" cbor:"hash_table_entries"`
	BlockTableOffset  uint64 `json:"block_table_offset" yaml:"block_table_offset" cbor:"block_table_offset"`
	BlockTableEntries uint32 `json:"block_table_entries" yaml:"block_table_entries" cbor:"block_table_entries"`

	HiBlockTableOffset uint64 `json:"hi_block_table_offset,omitempty" yaml:"hi_block_table_offset,omitempty" cbor:"hi_block_table_offset,omitempty"`
	HETTableOffset     uint64 `json:"het_table_offset,omitempty" yaml:"het_table_offset,omitempty" cbor:"het_table_offset,omitempty"`
	BETTableOffset     uint64 `json:"bet_table_offset,omitempty" yaml:"bet_table_offset,omitempty" cbor:"bet_table_offset,omitempty"`

	RawChunkSize uint32            `json:"raw_chunk_size,omitempty" yaml:"raw_chunk_size,omitempty" cbor:"raw_chunk_size,omitempty"`
	TableSizes   map[string]uint64 `json:"table_sizes,omitempty" yaml:"table_sizes,omitempty" cbor:"table_sizes,omitempty"`
	Digests      map[string]string `json:"md5,omitempty" yaml:"md5,omitempty" cbor:"md5,omitempty"`
	Unparsed     int               `json:"unparsed_bytes,omitempty" yaml:"unparsed_bytes,omitempty" cbor:"unparsed_bytes,omitempty"`
}

// TableView summarizes one table.
type TableView struct {
	Table   string `json:"table" yaml:"table" cbor:"table"`
	State   string `json:"state" yaml:"state" cbor:"state"`
	Offset  int64  `json:"offset,omitempty" yaml:"offset,omitempty" cbor:"offset,omitempty"`
	Entries int    `json:"entries,omitempty" yaml:"entries,omitempty" cbor:"entries,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
}

// HashRow is one hash table entry.
type HashRow struct {
	Index      int    `json:"index" yaml:"index" cbor:"index"`
	NameA      uint32 `json:"name_a" yaml:"name_a" cbor:"name_a"`
	NameB      uint32 `json:"name_b" yaml:"name_b" cbor:"name_b"`
	Locale     string `json:"locale" yaml:"locale" cbor:"locale"`
	Platform   uint16 `json:"platform" yaml:"platform" cbor:"platform"`
	BlockIndex uint32 `json:"block_index" yaml:"block_index" cbor:"block_index"`
	Status     string `json:"status" yaml:"status" cbor:"status"`
}

// BlockRow is one block table entry. Offset includes the hi-block word.
type BlockRow struct {
	Index      int    `json:"index" yaml:"index" cbor:"index"`
	Offset     uint64 `json:"offset" yaml:"offset" cbor:"offset"`
	StoredSize uint32 `json:"stored_size" yaml:"stored_size" cbor:"stored_size"`
	RealSize   uint32 `json:"real_size" yaml:"real_size" cbor:"real_size"`
	Flags      string `json:"flags" yaml:"flags" cbor:"flags"`
}

// HETView is the HET table prologue.
type HETView struct {
	Version        uint32 `json:"version" yaml:"version" cbor:"version"`
	DataSize       uint32 `json:"data_size" yaml:"data_size" cbor:"data_size"`
	MaxFileCount   uint32 `json:"max_file_count" yaml:"max_file_count" cbor:"max_file_count"`
	EntryCount     uint32 `json:"entry_count" yaml:"entry_count" cbor:"entry_count"`
	EntrySize      uint32 `json:"entry_size" yaml:"entry_size" cbor:"entry_size"`
	TotalIndexSize uint32 `json:"total_index_size" yaml:"total_index_size" cbor:"total_index_size"`
	IndexSizeExtra uint32 `json:"index_size_extra" yaml:"index_size_extra" cbor:"index_size_extra"`
	IndexSize      uint32 `json:"index_size" yaml:"index_size" cbor:"index_size"`
	BlockTableSize uint32 `json:"block_table_size" yaml:"block_table_size" cbor:"block_table_size"`
	UsedSlots      int    `json:"used_slots" yaml:"used_slots" cbor:"used_slots"`
}

// BETView is the BET table prologue.
type BETView struct {
	Version       uint32    `json:"version" yaml:"version" cbor:"version"`
	DataSize      uint32    `json:"data_size" yaml:"data_size" cbor:"data_size"`
	EntryCount    uint32    `json:"entry_count" yaml:"entry_count" cbor:"entry_count"`
	EntrySize     uint32    `json:"entry_size" yaml:"entry_size" cbor:"entry_size"`
	Fields        []BETBits `json:"fields" yaml:"fields" cbor:"fields"`
	TotalHashSize uint32    `json:"total_hash_size" yaml:"total_hash_size" cbor:"total_hash_size"`
	HashSize      uint32    `json:"hash_size" yaml:"hash_size" cbor:"hash_size"`
	HashTableSize uint32    `json:"hash_table_size" yaml:"hash_table_size" cbor:"hash_table_size"`
	Flags         []string  `json:"flags,omitempty" yaml:"flags,omitempty" cbor:"flags,omitempty"`
}

// BETBits locates one field inside a packed BET entry.
type BETBits struct {
	Name  string `json:"name" yaml:"name" cbor:"name"`
	Index uint32 `json:"index" yaml:"index" cbor:"index"`
	Width uint32 `json:"width" yaml:"width" cbor:"width"`
}

// Failed returns a report for an archive that could not be opened.
func Failed(path string, err error) *Report {
	return &Report{Path: path, Error: err.Error()}
}

// NewReport summarizes a. Rows of the tables named in detail are included.
func NewReport(path string, a *mpq.Archive, detail ...mpq.TableKind) *Report {
	r := &Report{
		Path:   path,
		Anchor: a.Anchor,
		Header: newHeaderView(a.Header),
	}
	if a.UserData != nil {
		r.UserData = &UserDataView{
			Offset:             a.UserDataAnchor,
			UserDataSize:       a.UserData.UserDataSize,
			HeaderOffset:       a.UserData.HeaderOffset,
			UserDataHeaderSize: a.UserData.UserDataHeaderSize,
			ContentSize:        len(a.UserData.Content),
		}
	}

	r.Tables = []TableView{
		tableView(mpq.TableHash, a.HashTable, func(v []mpq.HashEntry) int { return len(v) }),
		tableView(mpq.TableBlock, a.BlockTable, func(v []mpq.BlockEntry) int { return len(v) }),
		tableView(mpq.TableHiBlock, a.HiBlockTable, func(v []uint16) int { return len(v) }),
		tableView(mpq.TableHET, a.HETTable, func(v *mpq.HETTable) int { return int(v.EntryCount) }),
		tableView(mpq.TableBET, a.BETTable, func(v *mpq.BETTable) int { return int(v.EntryCount) }),
	}
	for _, w := range a.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}

	for _, kind := range detail {
		r.addRows(a, kind)
	}
	return r
}

func tableView[T any](kind mpq.TableKind, t mpq.Table[T], count func(T) int) TableView {
	v := TableView{Table: kind.String(), State: t.State.String(), Offset: t.Offset}
	if value, ok := t.Get(); ok {
		v.Entries = count(value)
	}
	if t.Err != nil {
		// The table name and offset are already in the view.
		var te *mpq.TableError
		if errors.As(t.Err, &te) {
			v.Error = te.Err.Error()
		} else {
			v.Error = t.Err.Error()
		}
	}
	return v
}

func (r *Report) addRows(a *mpq.Archive, kind mpq.TableKind) {
	switch kind {
	case mpq.TableHash:
		hashes, ok := a.HashTable.Get()
		if !ok {
			return
		}
		r.HashEntries = make([]HashRow, 0, len(hashes))
		for i, e := range hashes {
			r.HashEntries = append(r.HashEntries, HashRow{
				Index:      i,
				NameA:      e.NameA,
				NameB:      e.NameB,
				Locale:     e.Locale.String(),
				Platform:   e.Platform,
				BlockIndex: e.BlockIndex,
				Status:     hashStatus(e),
			})
		}
	case mpq.TableBlock:
		blocks, ok := a.BlockTable.Get()
		if !ok {
			return
		}
		r.BlockEntries = make([]BlockRow, 0, len(blocks))
		for i, b := range blocks {
			offset, err := a.FileOffset64(i)
			if err != nil {
				offset = uint64(b.DataOffset)
			}
			r.BlockEntries = append(r.BlockEntries, BlockRow{
				Index:      i,
				Offset:     offset,
				StoredSize: b.StoredSize,
				RealSize:   b.RealSize,
				Flags:      b.Flags.String(),
			})
		}
	case mpq.TableHiBlock:
		if hi, ok := a.HiBlockTable.Get(); ok {
			r.HiBlockEntries = hi
		}
	case mpq.TableHET:
		if het, ok := a.HETTable.Get(); ok {
			r.HET = newHETView(het)
		}
	case mpq.TableBET:
		if bet, ok := a.BETTable.Get(); ok {
			r.BET = newBETView(bet)
		}
	}
}

func hashStatus(e mpq.HashEntry) string {
	switch {
	case e.IsFree():
		return "free"
	case e.IsDeleted():
		return "deleted"
	default:
		return "used"
	}
}

func newHeaderView(h *mpq.Header) *HeaderView {
	v := &HeaderView{
		FormatVersion:     h.FormatVersion,
		HeaderSize:        h.HeaderSize,
		ArchiveSize:       uint64(h.ArchiveSize),
		SectorSize:        h.SectorSize(),
		HashTableOffset:   h.VirtualHashTableOffset(),
		HashTableEntries:  h.HashTableEntries,
		BlockTableOffset:  h.VirtualBlockTableOffset(),
		BlockTableEntries: h.BlockTableEntries,
		Unparsed:          len(h.Unparsed),
	}
	if h.FormatVersion >= mpq.FormatVersion2 {
		v.HiBlockTableOffset = h.HiBlockTableOffset
	}
	if h.FormatVersion >= mpq.FormatVersion3 {
		v.ArchiveSize = h.ArchiveSize64
		v.HETTableOffset = h.HETTableOffset
		v.BETTableOffset = h.BETTableOffset
	}
	if h.FormatVersion >= mpq.FormatVersion4 {
		v.RawChunkSize = h.RawChunkSize
		v.TableSizes = map[string]uint64{
			"hash":     h.HashTableSize64,
			"block":    h.BlockTableSize64,
			"hi_block": h.HiBlockTableSize64,
			"het":      h.HETTableSize64,
			"bet":      h.BETTableSize64,
		}
		v.Digests = map[string]string{
			"block":    hex.EncodeToString(h.BlockTableMD5[:]),
			"hash":     hex.EncodeToString(h.HashTableMD5[:]),
			"hi_block": hex.EncodeToString(h.HiBlockTableMD5[:]),
			"bet":      hex.EncodeToString(h.BETTableMD5[:]),
			"het":      hex.EncodeToString(h.HETTableMD5[:]),
			"header":   hex.EncodeToString(h.HeaderMD5[:]),
		}
	}
	return v
}

func newHETView(t *mpq.HETTable) *HETView {
	v := &HETView{
		Version:        t.Version,
		DataSize:       t.DataSize,
		MaxFileCount:   t.MaxFileCount,
		EntryCount:     t.EntryCount,
		EntrySize:      t.EntrySize,
		TotalIndexSize: t.TotalIndexSize,
		IndexSizeExtra: t.IndexSizeExtra,
		IndexSize:      t.IndexSize,
		BlockTableSize: t.BlockTableSize,
	}
	for _, h := range t.NameHashes {
		if h != 0 {
			v.UsedSlots++
		}
	}
	return v
}

func newBETView(t *mpq.BETTable) *BETView {
	v := &BETView{
		Version:    t.Version,
		DataSize:   t.DataSize,
		EntryCount: t.EntryCount,
		EntrySize:  t.EntrySize,
		Fields: []BETBits{
			{"file_offset", t.FileOffsetIdx, t.FileOffsetLen},
			{"real_size", t.FileRealSizeIdx, t.FileRealSizeLen},
			{"stored_size", t.FileStoredSizeIdx, t.FileStoredSizeLen},
			{"flag_index", t.FileFlagIdx, t.FileFlagLen},
			{"unknown", t.FileUnknownIdx, t.FileUnknownLen},
		},
		TotalHashSize: t.TotalHashSize,
		HashSize:      t.HashSize,
		HashTableSize: t.HashTableSize,
	}
	for _, f := range t.FlagTable {
		v.Flags = append(v.Flags, f.String())
	}
	return v
}

// ParseTable maps a --table argument to a table kind.
func ParseTable(name string) (mpq.TableKind, error) {
	switch name {
	case "hash":
		return mpq.TableHash, nil
	case "block":
		return mpq.TableBlock, nil
	case "hiblock", "hi-block":
		return mpq.TableHiBlock, nil
	case "het":
		return mpq.TableHET, nil
	case "bet":
		return mpq.TableBET, nil
	default:
		return 0, fmt.Errorf("unknown table %q (want hash, block, hiblock, het or bet)", name)
	}
}
