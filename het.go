// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "fmt"

// extCommonSize covers the magic, Version and DataSize fields shared by the
// HET and BET tables. DataSize counts the bytes after them.
const extCommonSize = 12

// HETHeader is the fixed prologue of a HET table, following its magic.
type HETHeader struct {
	Version        uint32
	DataSize       uint32 // Bytes following the Version and DataSize fields
	SectionSize    uint32
	MaxFileCount   uint32
	EntryCount     uint32 // Number of slots in the name hash array
	EntrySize      uint32 // Bit width of a name hash
	TotalIndexSize uint32 // Bit width of a file index, extra bits included
	IndexSizeExtra uint32
	IndexSize      uint32 // Effective bit width of a file index
	BlockTableSize uint32 // Size of the packed file index array in bytes
}

// HETTable is the extended hash table of a V3+ archive. Only the prologue is
// interpreted; the packed file index array stays inside Data.
type HETTable struct {
	HETHeader

	// NameHashes is the array of 8-bit name hashes at the start of Data,
	// EntryCount bytes long. Nil when Data is shorter than that.
	NameHashes []byte

	// Data is the region following the prologue, as bounded by DataSize.
	Data []byte
}

// DecodeHETTable decodes the HET table at the absolute position pos.
func DecodeHETTable(src Source, pos int64) (*HETTable, error) {
	return decodeHETTable(newByteSource(src), pos)
}

func decodeHETTable(s byteSource, pos int64) (*HETTable, error) {
	if err := s.expectMagic(pos, hetMagic); err != nil {
		return nil, fmt.Errorf("HET table: %w", err)
	}

	t := &HETTable{}
	n, err := s.record(pos+4, &t.HETHeader)
	if err != nil {
		return nil, fmt.Errorf("read HET table header: %w", err)
	}
	if t.Data, err = readExtData(s, pos, 4+n, t.DataSize); err != nil {
		return nil, fmt.Errorf("read HET table data: %w", err)
	}
	if uint64(t.EntryCount) <= uint64(len(t.Data)) {
		t.NameHashes = t.Data[:t.EntryCount:t.EntryCount]
	}
	return t, nil
}

// readExtData reads the region after a prologue of prologueSize bytes
// (magic included) using the table's own DataSize.
func readExtData(s byteSource, pos, prologueSize int64, dataSize uint32) ([]byte, error) {
	declared := int64(dataSize) - (prologueSize - extCommonSize)
	if declared < 0 {
		return nil, fmt.Errorf("data size %d shorter than %d byte prologue: %w",
			dataSize, prologueSize-extCommonSize, ErrTruncatedData)
	}
	return s.bytes(pos+prologueSize, declared)
}

// Warnings returns the soft inconsistencies of the table. A name hash array
// that does not fit in Data wraps ErrTruncatedData.
func (t *HETTable) Warnings() []error {
	if t.NameHashes == nil && t.EntryCount > 0 {
		return []error{fmt.Errorf("HET table name hash array of %d bytes exceeds %d byte data region: %w",
			t.EntryCount, len(t.Data), ErrTruncatedData)}
	}
	return nil
}
