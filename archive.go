// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// TableKind names one of the tables an archive header can point to.
type TableKind int

// Table kinds.
const (
	TableHash    TableKind = iota // Hash table
	TableBlock                    // Block table
	TableHiBlock                  // Hi-block table (high offset words)
	TableHET                      // HET table (extended hash table)
	TableBET                      // BET table (extended block table)
)

func (k TableKind) String() string {
	switch k {
	case TableHash:
		return "hash table"
	case TableBlock:
		return "block table"
	case TableHiBlock:
		return "hi-block table"
	case TableHET:
		return "HET table"
	case TableBET:
		return "BET table"
	default:
		return fmt.Sprintf("table(%d)", int(k))
	}
}

// TableState tells whether a table was absent, decoded, or failed.
type TableState int

// Table states.
const (
	TableAbsent  TableState = iota // Not present in this archive; no value or error
	TableDecoded                   // Value holds the decoded table
	TableFailed                    // Err holds a *TableError
)

func (s TableState) String() string {
	switch s {
	case TableAbsent:
		return "absent"
	case TableDecoded:
		return "decoded"
	case TableFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Table is the outcome of resolving one optional table.
type Table[T any] struct {
	State  TableState
	Offset int64 // absolute position; zero when absent
	Value  T     // set when State is TableDecoded
	Err    error // *TableError, set when State is TableFailed
}

// Get returns the decoded value and whether there is one.
func (t Table[T]) Get() (T, bool) {
	return t.Value, t.State == TableDecoded
}

// Archive is the decoded structure of an MPQ archive. Every table is resolved
// independently, so a broken table leaves the others usable.
type Archive struct {
	// Anchor is the absolute position of the header magic. All header
	// offsets are relative to it.
	Anchor int64

	// UserData is the preamble found before the header, or nil.
	UserData       *UserData
	UserDataAnchor int64

	Header *Header

	HashTable    Table[[]HashEntry]
	BlockTable   Table[[]BlockEntry]
	HiBlockTable Table[[]uint16]
	HETTable     Table[*HETTable]
	BETTable     Table[*BETTable]

	// Warnings lists soft inconsistencies found in decoded tables. Each wraps
	// ErrUnexpectedConstant or ErrTruncatedData.
	Warnings []error
}

// Open decodes the header of the archive stored in src and resolves its tables.
// An error is returned only when no header can be decoded; table failures are
// reported per table and by Err.
func Open(src Source, opts ...Option) (*Archive, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("mpq: %w", err)
		}
	}

	s := newByteSource(src)
	a := &Archive{}
	if err := a.locateHeader(s, o); err != nil {
		return nil, err
	}
	o.logger.Debug("decoded archive header",
		slog.Int64("anchor", a.Anchor),
		slog.Int("format_version", int(a.Header.FormatVersion)),
		slog.Uint64("header_size", uint64(a.Header.HeaderSize)))

	a.resolveTables(s, o.logger)
	return a, nil
}

// locateHeader finds the user data and header, probing the start position
// and then, if enabled, every 512-byte boundary within the search limit.
// A candidate that fails to decode does not stop the scan; its error is
// returned only when no later candidate decodes.
func (a *Archive) locateHeader(s byteSource, o *openOptions) error {
	var firstErr error
	for pos := o.start; pos < s.size && pos-o.start <= o.searchLimit; pos += searchStep {
		magic, err := s.u32(pos)
		if err != nil {
			break
		}

		var ud *UserData
		anchor := pos
		switch magic {
		case userDataMagic:
			if ud, err = decodeUserData(s, pos); err != nil {
				firstErr = cmp.Or(firstErr, err)
				o.logger.Debug("skipping user data candidate", slog.Int64("offset", pos), slog.Any("error", err))
				continue
			}
			anchor = ud.HeaderAnchor(pos)
		case headerMagic:
			if !plausibleHeader(s, pos) {
				o.logger.Debug("skipping implausible header candidate", slog.Int64("offset", pos))
				continue
			}
		default:
			continue
		}

		h, err := decodeHeader(s, anchor)
		if err != nil {
			firstErr = cmp.Or(firstErr, err)
			o.logger.Debug("skipping header candidate", slog.Int64("offset", anchor), slog.Any("error", err))
			continue
		}
		if ud != nil {
			a.UserData = ud
			a.UserDataAnchor = pos
			o.logger.Debug("found user data",
				slog.Int64("offset", pos),
				slog.Uint64("header_offset", uint64(ud.HeaderOffset)))
		}
		a.Anchor = anchor
		a.Header = h
		return nil
	}
	if firstErr != nil {
		return firstErr
	}

	// Nothing found: report the failure at the start position, or accept
	// the implausible header stored there.
	h, err := decodeHeader(s, o.start)
	if err != nil {
		return err
	}
	a.Anchor = o.start
	a.Header = h
	return nil
}

// plausibleHeader reports whether the header magic at pos is followed by a
// HeaderSize large enough for its format version.
func plausibleHeader(s byteSource, pos int64) bool {
	size, err := s.u32(pos + 4)
	if err != nil || size < headerSizeV1 {
		return false
	}
	version, err := s.u16(pos + 12)
	if err != nil {
		return false
	}
	layoutSizes := [...]uint32{headerSizeV1, headerSizeV2, headerSizeV3, headerSizeV4}
	if int(version) < len(layoutSizes) {
		return size >= layoutSizes[version]
	}
	return true
}

func (a *Archive) resolveTables(s byteSource, logger *slog.Logger) {
	h := a.Header

	a.HETTable = locate(s, a.Anchor, TableHET, h.HETTableOffset, h.FormatVersion >= FormatVersion3, logger,
		func(pos int64) (*HETTable, error) {
			return decodeHETTable(s, pos)
		})
	a.BETTable = locate(s, a.Anchor, TableBET, h.BETTableOffset, h.FormatVersion >= FormatVersion3, logger,
		func(pos int64) (*BETTable, error) {
			return decodeBETTable(s, pos)
		})
	a.HashTable = locate(s, a.Anchor, TableHash, h.VirtualHashTableOffset(), true, logger,
		func(pos int64) ([]HashEntry, error) {
			return decodeHashTable(s, pos, h.HashTableEntries)
		})
	a.BlockTable = locate(s, a.Anchor, TableBlock, h.VirtualBlockTableOffset(), true, logger,
		func(pos int64) ([]BlockEntry, error) {
			return decodeBlockTable(s, pos, h.BlockTableEntries)
		})
	a.HiBlockTable = locate(s, a.Anchor, TableHiBlock, h.HiBlockTableOffset, h.FormatVersion >= FormatVersion2, logger,
		func(pos int64) ([]uint16, error) {
			return decodeHiBlockTable(s, pos, h.BlockTableEntries)
		})

	if het, ok := a.HETTable.Get(); ok {
		for _, w := range het.Warnings() {
			logger.Warn("HET table warning", slog.Any("warning", w))
			a.Warnings = append(a.Warnings, w)
		}
	}
	if bet, ok := a.BETTable.Get(); ok {
		for _, w := range bet.Warnings() {
			logger.Warn("BET table warning", slog.Any("warning", w))
			a.Warnings = append(a.Warnings, w)
		}
	}
}

// locate resolves one table: absent unless supported and offset is non-zero,
// failed if the offset leaves the source or decode fails.
func locate[T any](s byteSource, anchor int64, kind TableKind, offset uint64, supported bool,
	logger *slog.Logger, decode func(pos int64) (T, error)) Table[T] {
	var t Table[T]
	if !supported || offset == 0 {
		return t
	}

	if offset > uint64(math.MaxInt64-anchor) || anchor+int64(offset) > s.size {
		t.State = TableFailed
		t.Offset = anchor
		if offset <= uint64(math.MaxInt64-anchor) {
			t.Offset = anchor + int64(offset)
		}
		t.Err = &TableError{
			Table:  kind,
			Offset: t.Offset,
			Err:    fmt.Errorf("offset 0x%X beyond source of %d bytes: %w", offset, s.size, ErrInconsistentOffset),
		}
		logger.Warn("table offset out of range", slog.String("table", kind.String()), slog.Any("error", t.Err))
		return t
	}

	t.Offset = anchor + int64(offset)
	v, err := decode(t.Offset)
	if err != nil {
		t.State = TableFailed
		t.Err = &TableError{Table: kind, Offset: t.Offset, Err: err}
		logger.Warn("table decode failed", slog.String("table", kind.String()), slog.Any("error", t.Err))
		return t
	}

	t.State = TableDecoded
	t.Value = v
	logger.Debug("decoded table", slog.String("table", kind.String()), slog.Int64("offset", t.Offset))
	return t
}

// Err joins the errors of all failed tables, or returns nil.
func (a *Archive) Err() error {
	return errors.Join(
		a.HashTable.Err,
		a.BlockTable.Err,
		a.HiBlockTable.Err,
		a.HETTable.Err,
		a.BETTable.Err,
	)
}

// FileOffset64 returns the data offset of block i, relative to the anchor,
// extended by its hi-block word when the hi-block table was decoded.
func (a *Archive) FileOffset64(i int) (uint64, error) {
	blocks, ok := a.BlockTable.Get()
	if !ok {
		return 0, fmt.Errorf("block table is %s", a.BlockTable.State)
	}
	if i < 0 || i >= len(blocks) {
		return 0, fmt.Errorf("block index %d out of range [0, %d)", i, len(blocks))
	}
	var hi uint16
	if hiBlocks, ok := a.HiBlockTable.Get(); ok && i < len(hiBlocks) {
		hi = hiBlocks[i]
	}
	return CombineOffset(blocks[i].DataOffset, hi), nil
}
