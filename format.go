// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// MPQ format constants
const (
	// Magic signatures, little-endian
	headerMagic   = 0x1A51504D // "MPQ\x1A"
	userDataMagic = 0x1B51504D // "MPQ\x1B"
	hetMagic      = 0x1A544548 // "HET\x1A"
	betMagic      = 0x1A544542 // "BET\x1A"

	// Header sizes per layout, magic included
	headerSizeV1 = 0x20
	headerSizeV2 = 0x2C
	headerSizeV3 = 0x44
	headerSizeV4 = 0xD0

	// Shift applied to a hi word when combining it with a 32-bit offset
	hiShift = 32

	// Size of one hash or block table entry
	tableEntrySize = 16

	digestSize = 16
)

// Format versions as stored in Header.FormatVersion.
const (
	FormatVersion1 = 0 // Original format (up to 4GB)
	FormatVersion2 = 1 // Burning Crusade: hi-block table, 48-bit offsets
	FormatVersion3 = 2 // Cataclysm beta: 64-bit archive size, HET/BET tables
	FormatVersion4 = 3 // Cataclysm: table sizes and MD5 digests
)

// Hash table entry block indexes with special meaning.
const (
	BlockIndexDeleted = 0xFFFFFFFE // Slot was used; probing continues
	BlockIndexFree    = 0xFFFFFFFF // Slot never used; probing stops
)

// CombineOffset joins a 32-bit offset with its 16-bit high word.
func CombineOffset(lo uint32, hi uint16) uint64 {
	return uint64(lo) + uint64(hi)<<hiShift
}

// HeaderV1 is the fixed prologue present in every header, following the magic.
type HeaderV1 struct {
	HeaderSize        uint32 // Size of the header (0x20 for V1 ... 0xD0 for V4)
	ArchiveSize       uint32 // Size of the archive (deprecated from V2 on)
	FormatVersion     uint16 // 0 = V1 ... 3 = V4
	BlockSize         uint16 // Power of 2 for sector size
	HashTableOffset   uint32 // Offset to hash table (low 32 bits)
	BlockTableOffset  uint32 // Offset to block table (low 32 bits)
	HashTableEntries  uint32 // Number of entries in hash table
	BlockTableEntries uint32 // Number of entries in block table
}

// HeaderV2 holds the fields added in format version 2 (12 bytes).
type HeaderV2 struct {
	HiBlockTableOffset uint64 // Offset to the hi-block table
	HashTableOffsetHi  uint16 // High 16 bits of hash table offset
	BlockTableOffsetHi uint16 // High 16 bits of block table offset
}

// HeaderV3 holds the fields added in format version 3 (24 bytes).
type HeaderV3 struct {
	ArchiveSize64  uint64
	BETTableOffset uint64
	HETTableOffset uint64
}

// HeaderV4 holds the fields added in format version 4 (140 bytes).
// The digests are decoded as stored and never verified.
type HeaderV4 struct {
	HashTableSize64    uint64
	BlockTableSize64   uint64
	HiBlockTableSize64 uint64
	HETTableSize64     uint64
	BETTableSize64     uint64
	RawChunkSize       uint32

	BlockTableMD5   [digestSize]byte
	HashTableMD5    [digestSize]byte
	HiBlockTableMD5 [digestSize]byte
	BETTableMD5     [digestSize]byte
	HETTableMD5     [digestSize]byte
	HeaderMD5       [digestSize]byte
}

// Header is a decoded archive header. Blocks belonging to a newer format
// version than the archive's are left zero.
type Header struct {
	HeaderV1
	HeaderV2
	HeaderV3
	HeaderV4

	// Unparsed holds declared header bytes past the V4 layout when
	// FormatVersion is newer than any known version.
	Unparsed []byte
}

// layout returns the highest known format version whose fields are present.
func (h *Header) layout() uint16 {
	if h.FormatVersion > FormatVersion4 {
		return FormatVersion4
	}
	return h.FormatVersion
}

// VirtualHashTableOffset returns the full hash table offset, relative to the
// header anchor.
func (h *Header) VirtualHashTableOffset() uint64 {
	if h.FormatVersion >= FormatVersion2 {
		return CombineOffset(h.HashTableOffset, h.HashTableOffsetHi)
	}
	return uint64(h.HashTableOffset)
}

// VirtualBlockTableOffset returns the full block table offset, relative to the
// header anchor.
func (h *Header) VirtualBlockTableOffset() uint64 {
	if h.FormatVersion >= FormatVersion2 {
		return CombineOffset(h.BlockTableOffset, h.BlockTableOffsetHi)
	}
	return uint64(h.BlockTableOffset)
}

// SectorSize returns the size of one file sector in bytes.
func (h *Header) SectorSize() uint32 {
	return 512 << h.BlockSize
}

// MarshalBinary encodes the header fields in on-disk layout.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	blocks := []any{uint32(headerMagic), &h.HeaderV1}
	layout := h.layout()
	if layout >= FormatVersion2 {
		blocks = append(blocks, &h.HeaderV2)
	}
	if layout >= FormatVersion3 {
		blocks = append(blocks, &h.HeaderV3)
	}
	if layout >= FormatVersion4 {
		blocks = append(blocks, &h.HeaderV4)
	}
	for _, b := range blocks {
		if err := binary.Write(&buf, binary.LittleEndian, b); err != nil {
			return nil, err
		}
	}
	buf.Write(h.Unparsed)
	return buf.Bytes(), nil
}

// HashEntry is one slot of the hash table.
type HashEntry struct {
	NameA      uint32 // First hash of the file name
	NameB      uint32 // Second hash of the file name
	Locale     Locale
	Platform   uint16 // Platform ID (0 = default)
	BlockIndex uint32 // Index into the block table, or a BlockIndex sentinel
}

// IsFree reports whether the slot was never used.
func (e HashEntry) IsFree() bool { return e.BlockIndex == BlockIndexFree }

// IsDeleted reports whether the slot held a file that was removed.
func (e HashEntry) IsDeleted() bool { return e.BlockIndex == BlockIndexDeleted }

// IsUsed reports whether the slot points into the block table.
func (e HashEntry) IsUsed() bool { return !e.IsFree() && !e.IsDeleted() }

// BlockEntry is one row of the block table.
type BlockEntry struct {
	DataOffset uint32 // Offset of the file data (low 32 bits), relative to the anchor
	StoredSize uint32 // Size as stored, possibly compressed
	RealSize   uint32 // Uncompressed size
	Flags      BlockFlags
}

// BlockFlags is the flag word of a block table entry.
type BlockFlags uint32

// Block table entry flags
const (
	FileImplode      BlockFlags = 0x00000100 // Imploded (PKWARE compression)
	FileCompress     BlockFlags = 0x00000200 // Compressed (multi-algorithm)
	FileEncrypted    BlockFlags = 0x00010000 // Encrypted
	FileFixKey       BlockFlags = 0x00020000 // Key adjusted by block offset
	FilePatchFile    BlockFlags = 0x00100000 // Patch file
	FileSingleUnit   BlockFlags = 0x01000000 // Single unit (not split into sectors)
	FileDeleteMarker BlockFlags = 0x02000000 // File is a deletion marker
	FileSectorCRC    BlockFlags = 0x04000000 // Sector CRC values after data
	FileExists       BlockFlags = 0x80000000 // File exists
)

var blockFlagNames = []struct {
	flag BlockFlags
	name string
}{
	{FileExists, "exists"},
	{FileSingleUnit, "single-unit"},
	{FileCompress, "compress"},
	{FileImplode, "implode"},
	{FileEncrypted, "encrypted"},
	{FileFixKey, "fix-key"},
	{FilePatchFile, "patch-file"},
	{FileDeleteMarker, "delete-marker"},
	{FileSectorCRC, "sector-crc"},
}

// Has reports whether all bits of flag are set.
func (f BlockFlags) Has(flag BlockFlags) bool { return f&flag == flag }

// Exists reports whether the block holds a file.
func (f BlockFlags) Exists() bool { return f.Has(FileExists) }

// Compressed reports whether the file data uses multi-algorithm compression.
func (f BlockFlags) Compressed() bool { return f.Has(FileCompress) }

// Imploded reports whether the file data is PKWARE imploded.
func (f BlockFlags) Imploded() bool { return f.Has(FileImplode) }

// Encrypted reports whether the file data is encrypted.
func (f BlockFlags) Encrypted() bool { return f.Has(FileEncrypted) }

// String lists the names of the set flags, with unknown bits in hex.
func (f BlockFlags) String() string {
	var names []string
	rest := f
	for _, n := range blockFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%08X", uint32(rest)))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
