// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// betUnknown00 is the value every known BET table stores in Unknown00.
const betUnknown00 = 0x10

// BETHeader is the fixed prologue of a BET table, following its magic.
// The Idx and Len fields give the bit position and width of each field
// inside a packed file table entry.
type BETHeader struct {
	Version     uint32
	DataSize    uint32 // Bytes following the Version and DataSize fields
	SectionSize uint32
	EntryCount  uint32
	Unknown00   uint32
	EntrySize   uint32 // Bit width of a packed file table entry

	FileOffsetIdx     uint32
	FileRealSizeIdx   uint32
	FileStoredSizeIdx uint32
	FileFlagIdx       uint32
	FileUnknownIdx    uint32

	FileOffsetLen     uint32
	FileRealSizeLen   uint32
	FileStoredSizeLen uint32
	FileFlagLen       uint32
	FileUnknownLen    uint32

	TotalHashSize uint32
	HashSizeExtra uint32
	HashSize      uint32
	HashTableSize uint32
	FlagCount     uint32
}

// BETTable is the extended block table of a V3+ archive. Only the prologue
// is interpreted; the packed file table and name hash array stay inside Data.
type BETTable struct {
	BETHeader

	// FlagTable holds the FlagCount flag words at the start of Data. Nil
	// when Data is shorter than that.
	FlagTable []BlockFlags

	// Data is the region following the prologue, as bounded by DataSize.
	Data []byte
}

// DecodeBETTable decodes the BET table at the absolute position pos.
// An unexpected Unknown00 does not fail decoding; see Warnings.
func DecodeBETTable(src Source, pos int64) (*BETTable, error) {
	return decodeBETTable(newByteSource(src), pos)
}

func decodeBETTable(s byteSource, pos int64) (*BETTable, error) {
	if err := s.expectMagic(pos, betMagic); err != nil {
		return nil, fmt.Errorf("BET table: %w", err)
	}

	t := &BETTable{}
	n, err := s.record(pos+4, &t.BETHeader)
	if err != nil {
		return nil, fmt.Errorf("read BET table header: %w", err)
	}
	if t.Data, err = readExtData(s, pos, 4+n, t.DataSize); err != nil {
		return nil, fmt.Errorf("read BET table data: %w", err)
	}
	if uint64(t.FlagCount)*4 <= uint64(len(t.Data)) {
		t.FlagTable = make([]BlockFlags, t.FlagCount)
		for i := range t.FlagTable {
			t.FlagTable[i] = BlockFlags(binary.LittleEndian.Uint32(t.Data[i*4:]))
		}
	}
	return t, nil
}

// Warnings returns the soft inconsistencies of the table: an unexpected
// Unknown00 (ErrUnexpectedConstant) or a flag table that does not fit in
// Data (ErrTruncatedData).
func (t *BETTable) Warnings() []error {
	var warnings []error
	if t.Unknown00 != betUnknown00 {
		warnings = append(warnings, fmt.Errorf("BET table unknown_00 is 0x%X, want 0x%X: %w",
			t.Unknown00, betUnknown00, ErrUnexpectedConstant))
	}
	if t.FlagTable == nil && t.FlagCount > 0 {
		warnings = append(warnings, fmt.Errorf("BET table flag table of %d entries exceeds %d byte data region: %w",
			t.FlagCount, len(t.Data), ErrTruncatedData))
	}
	return warnings
}
