// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// DecodeHashTable reads count hash table entries starting at the absolute
// position pos. Entries are returned as stored: no decryption, and no check
// of the power-of-two size that lookups rely on.
func DecodeHashTable(src Source, pos int64, count uint32) ([]HashEntry, error) {
	return decodeHashTable(newByteSource(src), pos, count)
}

func decodeHashTable(s byteSource, pos int64, count uint32) ([]HashEntry, error) {
	data, err := s.bytes(pos, int64(count)*tableEntrySize)
	if err != nil {
		return nil, fmt.Errorf("read hash table: %w", err)
	}

	hashTable := make([]HashEntry, count)
	for i := range hashTable {
		e := data[i*tableEntrySize:]
		hashTable[i] = HashEntry{
			NameA:      binary.LittleEndian.Uint32(e[0:]),
			NameB:      binary.LittleEndian.Uint32(e[4:]),
			Locale:     Locale(binary.LittleEndian.Uint16(e[8:])),
			Platform:   binary.LittleEndian.Uint16(e[10:]),
			BlockIndex: binary.LittleEndian.Uint32(e[12:]),
		}
	}
	return hashTable, nil
}

// DecodeBlockTable reads count block table entries starting at the absolute
// position pos.
func DecodeBlockTable(src Source, pos int64, count uint32) ([]BlockEntry, error) {
	return decodeBlockTable(newByteSource(src), pos, count)
}

func decodeBlockTable(s byteSource, pos int64, count uint32) ([]BlockEntry, error) {
	data, err := s.bytes(pos, int64(count)*tableEntrySize)
	if err != nil {
		return nil, fmt.Errorf("read block table: %w", err)
	}

	blockTable := make([]BlockEntry, count)
	for i := range blockTable {
		e := data[i*tableEntrySize:]
		blockTable[i] = BlockEntry{
			DataOffset: binary.LittleEndian.Uint32(e[0:]),
			StoredSize: binary.LittleEndian.Uint32(e[4:]),
			RealSize:   binary.LittleEndian.Uint32(e[8:]),
			Flags:      BlockFlags(binary.LittleEndian.Uint32(e[12:])),
		}
	}
	return blockTable, nil
}

// DecodeHiBlockTable reads count high offset words starting at the absolute
// position pos. Word i extends the DataOffset of block i; see CombineOffset.
func DecodeHiBlockTable(src Source, pos int64, count uint32) ([]uint16, error) {
	return decodeHiBlockTable(newByteSource(src), pos, count)
}

func decodeHiBlockTable(s byteSource, pos int64, count uint32) ([]uint16, error) {
	data, err := s.bytes(pos, int64(count)*2)
	if err != nil {
		return nil, fmt.Errorf("read hi-block table: %w", err)
	}

	hiBlockTable := make([]uint16, count)
	for i := range hiBlockTable {
		hiBlockTable[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return hiBlockTable, nil
}
