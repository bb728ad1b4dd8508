// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package mpqtest builds synthetic MPQ images for tests. It encodes every
// structure independently of package mpq so the decoders are checked against
// a second implementation of the layout.
package mpqtest

import (
	"bytes"
	"encoding/binary"
)

// Magic tags
var (
	HeaderMagic   = []byte("MPQ\x1A")
	UserDataMagic = []byte("MPQ\x1B")
	HETMagic      = []byte("HET\x1A")
	BETMagic      = []byte("BET\x1A")
)

// Image is a sparse byte image that grows as structures are placed in it.
type Image struct {
	buf []byte
}

// Put copies b into the image at off, zero-filling any gap.
func (im *Image) Put(off int64, b []byte) *Image {
	if end := int(off) + len(b); end > len(im.buf) {
		im.buf = append(im.buf, make([]byte, end-len(im.buf))...)
	}
	copy(im.buf[off:], b)
	return im
}

// Pad extends the image with zeros up to size bytes.
func (im *Image) Pad(size int) *Image {
	if size > len(im.buf) {
		im.buf = append(im.buf, make([]byte, size-len(im.buf))...)
	}
	return im
}

// Bytes returns the image contents.
func (im *Image) Bytes() []byte {
	return im.buf
}

// Reader returns a reader over a copy of the image.
func (im *Image) Reader() *bytes.Reader {
	return bytes.NewReader(bytes.Clone(im.buf))
}

// Header lists every header field. Encode writes the blocks that
// FormatVersion calls for, using the V4 layout for newer versions.
type Header struct {
	HeaderSize        uint32
	ArchiveSize       uint32
	FormatVersion     uint16
	BlockSize         uint16
	HashTableOffset   uint32
	BlockTableOffset  uint32
	HashTableEntries  uint32
	BlockTableEntries uint32

	HiBlockTableOffset uint64
	HashTableOffsetHi  uint16
	BlockTableOffsetHi uint16

	ArchiveSize64  uint64
	BETTableOffset uint64
	HETTableOffset uint64

	// Hash, block, hi-block, HET, BET
	TableSizes   [5]uint64
	RawChunkSize uint32
	// Block, hash, hi-block, BET, HET, header
	Digests [6][16]byte

	Trailing []byte
}

// Encode returns the on-disk bytes of the header.
func (h Header) Encode() []byte {
	le := binary.LittleEndian
	b := append([]byte(nil), HeaderMagic...)
	b = le.AppendUint32(b, h.HeaderSize)
	b = le.AppendUint32(b, h.ArchiveSize)
	b = le.AppendUint16(b, h.FormatVersion)
	b = le.AppendUint16(b, h.BlockSize)
	b = le.AppendUint32(b, h.HashTableOffset)
	b = le.AppendUint32(b, h.BlockTableOffset)
	b = le.AppendUint32(b, h.HashTableEntries)
	b = le.AppendUint32(b, h.BlockTableEntries)
	if h.FormatVersion >= 1 {
		b = le.AppendUint64(b, h.HiBlockTableOffset)
		b = le.AppendUint16(b, h.HashTableOffsetHi)
		b = le.AppendUint16(b, h.BlockTableOffsetHi)
	}
	if h.FormatVersion >= 2 {
		b = le.AppendUint64(b, h.ArchiveSize64)
		b = le.AppendUint64(b, h.BETTableOffset)
		b = le.AppendUint64(b, h.HETTableOffset)
	}
	if h.FormatVersion >= 3 {
		for _, size := range h.TableSizes {
			b = le.AppendUint64(b, size)
		}
		b = le.AppendUint32(b, h.RawChunkSize)
		for _, d := range h.Digests {
			b = append(b, d[:]...)
		}
	}
	return append(b, h.Trailing...)
}

// UserData is the user data preamble.
type UserData struct {
	UserDataSize       uint32
	HeaderOffset       uint32
	UserDataHeaderSize uint32
	Content            []byte
}

// Encode returns the on-disk bytes of the user data block.
func (u UserData) Encode() []byte {
	le := binary.LittleEndian
	b := append([]byte(nil), UserDataMagic...)
	b = le.AppendUint32(b, u.UserDataSize)
	b = le.AppendUint32(b, u.HeaderOffset)
	b = le.AppendUint32(b, u.UserDataHeaderSize)
	return append(b, u.Content...)
}

// HashEntry is one hash table slot.
type HashEntry struct {
	NameA, NameB     uint32
	Locale, Platform uint16
	BlockIndex       uint32
}

// EncodeHashTable returns the bytes of a plain (unencrypted) hash table.
func EncodeHashTable(entries []HashEntry) []byte {
	le := binary.LittleEndian
	var b []byte
	for _, e := range entries {
		b = le.AppendUint32(b, e.NameA)
		b = le.AppendUint32(b, e.NameB)
		b = le.AppendUint16(b, e.Locale)
		b = le.AppendUint16(b, e.Platform)
		b = le.AppendUint32(b, e.BlockIndex)
	}
	return b
}

// BlockEntry is one block table row.
type BlockEntry struct {
	DataOffset, StoredSize, RealSize, Flags uint32
}

// EncodeBlockTable returns the bytes of a plain (unencrypted) block table.
func EncodeBlockTable(entries []BlockEntry) []byte {
	le := binary.LittleEndian
	var b []byte
	for _, e := range entries {
		b = le.AppendUint32(b, e.DataOffset)
		b = le.AppendUint32(b, e.StoredSize)
		b = le.AppendUint32(b, e.RealSize)
		b = le.AppendUint32(b, e.Flags)
	}
	return b
}

// EncodeHiBlockTable returns the bytes of a hi-block table.
func EncodeHiBlockTable(words []uint16) []byte {
	var b []byte
	for _, w := range words {
		b = binary.LittleEndian.AppendUint16(b, w)
	}
	return b
}

// HET is a HET table. A zero DataSize is replaced by the size of the fields
// after DataSize plus len(Data).
type HET struct {
	Version, DataSize, SectionSize, MaxFileCount, EntryCount, EntrySize uint32
	TotalIndexSize, IndexSizeExtra, IndexSize, BlockTableSize           uint32

	Data []byte
}

// Encode returns the on-disk bytes of the table.
func (t HET) Encode() []byte {
	if t.DataSize == 0 {
		t.DataSize = uint32(8*4 + len(t.Data))
	}
	return encodeExt(HETMagic, []uint32{
		t.Version, t.DataSize, t.SectionSize, t.MaxFileCount, t.EntryCount, t.EntrySize,
		t.TotalIndexSize, t.IndexSizeExtra, t.IndexSize, t.BlockTableSize,
	}, t.Data)
}

// BET is a BET table. A zero DataSize is replaced by the size of the fields
// after DataSize plus len(Data).
type BET struct {
	Version, DataSize, SectionSize, EntryCount, Unknown00, EntrySize uint32

	// Offset, real size, stored size, flag, unknown
	Idx, Len [5]uint32

	TotalHashSize, HashSizeExtra, HashSize, HashTableSize, FlagCount uint32

	Data []byte
}

// Encode returns the on-disk bytes of the table.
func (t BET) Encode() []byte {
	if t.DataSize == 0 {
		t.DataSize = uint32(19*4 + len(t.Data))
	}
	fields := []uint32{t.Version, t.DataSize, t.SectionSize, t.EntryCount, t.Unknown00, t.EntrySize}
	fields = append(fields, t.Idx[:]...)
	fields = append(fields, t.Len[:]...)
	fields = append(fields, t.TotalHashSize, t.HashSizeExtra, t.HashSize, t.HashTableSize, t.FlagCount)
	return encodeExt(BETMagic, fields, t.Data)
}

func encodeExt(magic []byte, fields []uint32, data []byte) []byte {
	b := append([]byte(nil), magic...)
	for _, f := range fields {
		b = binary.LittleEndian.AppendUint32(b, f)
	}
	return append(b, data...)
}

// Uint32s encodes values as consecutive little-endian words.
func Uint32s(values ...uint32) []byte {
	var b []byte
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}
