// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-mpqinfo/internal/mpqtest"
)

var (
	testHashEntries = []mpqtest.HashEntry{
		{NameA: 0x11111111, NameB: 0x22222222, Locale: 0, BlockIndex: 0},
		{NameA: 0xFFFFFFFF, NameB: 0xFFFFFFFF, Locale: 0xFFFF, Platform: 0xFFFF, BlockIndex: BlockIndexFree},
		{NameA: 0x33333333, NameB: 0x44444444, Locale: 0x0407, BlockIndex: 1},
		{NameA: 0xFFFFFFFF, NameB: 0xFFFFFFFF, Locale: 0xFFFF, Platform: 0xFFFF, BlockIndex: BlockIndexDeleted},
	}
	testBlockEntries = []mpqtest.BlockEntry{
		{DataOffset: 0xD0, StoredSize: 0x10, RealSize: 0x10, Flags: 0x81000000},
		{DataOffset: 0xE0, StoredSize: 0x20, RealSize: 0x80, Flags: 0x81000200},
	}
)

// buildV4Archive places a V4 archive with every table at anchor inside im.
func buildV4Archive(im *mpqtest.Image, anchor int64) {
	hdr := mpqtest.Header{
		HeaderSize:         headerSizeV4,
		FormatVersion:      FormatVersion4,
		BlockSize:          3,
		HashTableOffset:    0x300,
		BlockTableOffset:   0x340,
		HashTableEntries:   uint32(len(testHashEntries)),
		BlockTableEntries:  uint32(len(testBlockEntries)),
		HiBlockTableOffset: 0x360,
		ArchiveSize64:      0x364,
		HETTableOffset:     0x100,
		BETTableOffset:     0x200,
	}
	im.Put(anchor, hdr.Encode())
	im.Put(anchor+0xD0, bytes.Repeat([]byte{0xCC}, 0x30))
	im.Put(anchor+0x100, mpqtest.HET{Version: 1, EntryCount: 4, Data: []byte{1, 2, 3, 4}}.Encode())
	im.Put(anchor+0x200, mpqtest.BET{Version: 1, Unknown00: 0x10, EntryCount: 2, FlagCount: 1,
		Data: mpqtest.Uint32s(0x81000200)}.Encode())
	im.Put(anchor+0x300, mpqtest.EncodeHashTable(testHashEntries))
	im.Put(anchor+0x340, mpqtest.EncodeBlockTable(testBlockEntries))
	im.Put(anchor+0x360, mpqtest.EncodeHiBlockTable([]uint16{0, 2}))
}

func TestOpenV4Archive(t *testing.T) {
	im := &mpqtest.Image{}
	buildV4Archive(im, 0)

	a, err := Open(im.Reader())
	require.NoError(t, err)
	require.NoError(t, a.Err())

	assert.Equal(t, int64(0), a.Anchor)
	assert.Nil(t, a.UserData)
	assert.Equal(t, uint16(FormatVersion4), a.Header.FormatVersion)

	hashes, ok := a.HashTable.Get()
	require.True(t, ok)
	require.Len(t, hashes, 4)
	assert.Equal(t, int64(0x300), a.HashTable.Offset)
	assert.Equal(t, LocaleGerman, hashes[2].Locale)

	blocks, ok := a.BlockTable.Get()
	require.True(t, ok)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint32(0x80), blocks[1].RealSize)

	hiBlocks, ok := a.HiBlockTable.Get()
	require.True(t, ok)
	assert.Equal(t, []uint16{0, 2}, hiBlocks)

	het, ok := a.HETTable.Get()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, het.NameHashes)

	bet, ok := a.BETTable.Get()
	require.True(t, ok)
	assert.Equal(t, []BlockFlags{FileExists | FileSingleUnit | FileCompress}, bet.FlagTable)
	assert.Empty(t, a.Warnings)

	off, err := a.FileOffset64(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2_0000_00E0), off)

	_, err = a.FileOffset64(2)
	assert.Error(t, err)
}

func TestOpenV1Archive(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0, mpqtest.Header{
		HeaderSize:        headerSizeV1,
		HashTableOffset:   0x20,
		BlockTableOffset:  0x60,
		HashTableEntries:  4,
		BlockTableEntries: 2,
	}.Encode())
	im.Put(0x20, mpqtest.EncodeHashTable(testHashEntries))
	im.Put(0x60, mpqtest.EncodeBlockTable(testBlockEntries))

	a, err := Open(im.Reader())
	require.NoError(t, err)
	require.NoError(t, a.Err())

	assert.Equal(t, TableDecoded, a.HashTable.State)
	assert.Equal(t, TableDecoded, a.BlockTable.State)
	assert.Equal(t, TableAbsent, a.HiBlockTable.State)
	assert.Equal(t, TableAbsent, a.HETTable.State)
	assert.Equal(t, TableAbsent, a.BETTable.State)

	off, err := a.FileOffset64(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xD0), off)
}

func TestOpenEmptyTables(t *testing.T) {
	// Zero-entry tables may sit at the very end of the archive.
	raw := mpqtest.Header{HeaderSize: headerSizeV1, HashTableOffset: 0x20, BlockTableOffset: 0x20}.Encode()

	a, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, a.Err())

	hashes, ok := a.HashTable.Get()
	require.True(t, ok)
	assert.Empty(t, hashes)
}

func TestHETAbsentBeforeV3(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0x40, mpqtest.HET{EntryCount: 1, Data: []byte{7}}.Encode())
	im.Put(0x80, mpqtest.BET{Unknown00: 0x10}.Encode())

	// Stray extended offsets on a V2 header are never followed.
	a := &Archive{Header: &Header{
		HeaderV1: HeaderV1{FormatVersion: FormatVersion2},
		HeaderV3: HeaderV3{HETTableOffset: 0x40, BETTableOffset: 0x80},
	}}
	a.resolveTables(newByteSource(im.Reader()), slog.New(slog.DiscardHandler))

	assert.Equal(t, TableAbsent, a.HETTable.State)
	assert.Equal(t, TableAbsent, a.BETTable.State)
	assert.Nil(t, a.HETTable.Value)

	a.Header.FormatVersion = FormatVersion3
	a.resolveTables(newByteSource(im.Reader()), slog.New(slog.DiscardHandler))
	assert.Equal(t, TableDecoded, a.HETTable.State)
	assert.Equal(t, TableDecoded, a.BETTable.State)
}

func TestOpenIsolatesTableFailures(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0, mpqtest.Header{
		HeaderSize:        headerSizeV3,
		FormatVersion:     FormatVersion3,
		HashTableOffset:   0x44,
		HashTableEntries:  1000,
		BlockTableOffset:  0x44,
		BlockTableEntries: 1,
		HETTableOffset:    0x10000,
		BETTableOffset:    0x100,
	}.Encode())
	im.Put(0x44, mpqtest.EncodeBlockTable(testBlockEntries[:1]))
	im.Put(0x100, mpqtest.BET{Unknown00: 0x10, EntryCount: 1}.Encode())

	a, err := Open(im.Reader())
	require.NoError(t, err)

	assert.Equal(t, TableFailed, a.HETTable.State)
	assert.ErrorIs(t, a.HETTable.Err, ErrInconsistentOffset)
	var tableErr *TableError
	require.ErrorAs(t, a.HETTable.Err, &tableErr)
	assert.Equal(t, TableHET, tableErr.Table)
	assert.Equal(t, int64(0x10000), tableErr.Offset)

	bet, ok := a.BETTable.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(1), bet.EntryCount)

	assert.Equal(t, TableFailed, a.HashTable.State)
	assert.ErrorIs(t, a.HashTable.Err, ErrTruncatedData)

	blocks, ok := a.BlockTable.Get()
	require.True(t, ok)
	assert.Len(t, blocks, 1)

	err = a.Err()
	assert.ErrorIs(t, err, ErrInconsistentOffset)
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestOpenBadExtendedMagic(t *testing.T) {
	im := &mpqtest.Image{}
	buildV4Archive(im, 0)
	im.Put(0x100, []byte("XXXX"))

	a, err := Open(im.Reader())
	require.NoError(t, err)
	assert.ErrorIs(t, a.HETTable.Err, ErrInvalidMagic)
	assert.Equal(t, TableDecoded, a.BETTable.State)
	assert.Equal(t, TableDecoded, a.HashTable.State)
}

func TestOpenHugeOffset(t *testing.T) {
	raw := mpqtest.Header{
		HeaderSize:     headerSizeV3,
		FormatVersion:  FormatVersion3,
		HETTableOffset: 0xFFFFFFFF_FFFFFFFF,
	}.Encode()

	a, err := Open(bytes.NewReader(raw), WithAnchor(0))
	require.NoError(t, err)
	assert.ErrorIs(t, a.HETTable.Err, ErrInconsistentOffset)
}

func TestOpenWithUserData(t *testing.T) {
	content := []byte("replay header")
	im := &mpqtest.Image{}
	im.Put(0, mpqtest.UserData{
		UserDataSize:       0x200,
		HeaderOffset:       0x400,
		UserDataHeaderSize: uint32(len(content)),
		Content:            content,
	}.Encode())
	buildV4Archive(im, 0x400)

	a, err := Open(im.Reader())
	require.NoError(t, err)
	require.NoError(t, a.Err())

	require.NotNil(t, a.UserData)
	assert.Equal(t, content, a.UserData.Content)
	assert.Equal(t, int64(0), a.UserDataAnchor)
	assert.Equal(t, int64(0x400), a.Anchor)
	assert.Equal(t, int64(0x700), a.HashTable.Offset)
	assert.Equal(t, int64(0x500), a.HETTable.Offset)

	out, err := a.UserData.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, im.Bytes()[:16+len(content)], out)
}

func TestDecodeUserData(t *testing.T) {
	raw := mpqtest.UserData{UserDataSize: 0x200, HeaderOffset: 0x400, UserDataHeaderSize: 0x100}.Encode()

	ud, err := DecodeUserData(bytes.NewReader(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x400), ud.HeaderOffset)
	assert.Nil(t, ud.Content, "content past the end is left unread")
	assert.Equal(t, int64(0x410), ud.HeaderAnchor(0x10))

	_, err = DecodeUserData(bytes.NewReader(mpqtest.Header{}.Encode()), 0)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, err = DecodeUserData(bytes.NewReader(raw[:10]), 0)
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestOpenHeaderSearch(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0, bytes.Repeat([]byte("MZ"), 0x300))
	buildV4Archive(im, 0x800)

	_, err := Open(im.Reader())
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, err = Open(im.Reader(), WithHeaderSearch(0x400))
	require.ErrorIs(t, err, ErrInvalidMagic, "header lies beyond the search limit")

	a, err := Open(im.Reader(), WithHeaderSearch(0x1000))
	require.NoError(t, err)
	assert.Equal(t, int64(0x800), a.Anchor)
	require.NoError(t, a.Err())

	a, err = Open(im.Reader(), WithAnchor(0x600), WithHeaderSearch(0x200))
	require.NoError(t, err)
	assert.Equal(t, int64(0x800), a.Anchor)

	t.Run("broken user data candidate", func(t *testing.T) {
		im := &mpqtest.Image{}
		im.Put(0x200, mpqtest.UserData{UserDataSize: 0x200, HeaderOffset: 0x7000}.Encode())
		buildV4Archive(im, 0x800)

		a, err := Open(im.Reader(), WithHeaderSearch(0x1000))
		require.NoError(t, err)
		assert.Equal(t, int64(0x800), a.Anchor)
		assert.Nil(t, a.UserData)
		require.NoError(t, a.Err())

		_, err = Open(im.Reader(), WithHeaderSearch(0x400))
		require.ErrorIs(t, err, ErrTruncatedData, "first candidate error when nothing decodes")
	})

	t.Run("stray header magic", func(t *testing.T) {
		im := &mpqtest.Image{}
		im.Put(0x200, mpqtest.HeaderMagic)
		buildV4Archive(im, 0x800)

		a, err := Open(im.Reader(), WithHeaderSearch(0x1000))
		require.NoError(t, err)
		assert.Equal(t, int64(0x800), a.Anchor)
	})

	t.Run("header size too small for version", func(t *testing.T) {
		im := &mpqtest.Image{}
		im.Put(0x200, mpqtest.Header{HeaderSize: headerSizeV1, FormatVersion: FormatVersion4}.Encode())
		buildV4Archive(im, 0x800)

		a, err := Open(im.Reader(), WithHeaderSearch(0x1000))
		require.NoError(t, err)
		assert.Equal(t, int64(0x800), a.Anchor)
		assert.Equal(t, uint16(FormatVersion4), a.Header.FormatVersion)
	})
}

func TestOpenHeaderErrors(t *testing.T) {
	raw := mpqtest.Header{HeaderSize: headerSizeV1}.Encode()
	raw[3] = 0x00

	a, err := Open(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrInvalidMagic)
	assert.Nil(t, a)

	_, err = Open(bytes.NewReader(raw[:2]))
	require.ErrorIs(t, err, ErrTruncatedData)

	_, err = Open(bytes.NewReader(raw), WithAnchor(-1))
	require.Error(t, err)

	_, err = Open(bytes.NewReader(raw), WithLogger(nil))
	require.Error(t, err)
}

func TestOpenLogsWarnings(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0, mpqtest.Header{
		HeaderSize:     headerSizeV3,
		FormatVersion:  FormatVersion3,
		BETTableOffset: 0x44,
	}.Encode())
	im.Put(0x44, mpqtest.BET{Unknown00: 0x11}.Encode())

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := Open(im.Reader(), WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, a.Warnings, 1)
	assert.True(t, errors.Is(a.Warnings[0], ErrUnexpectedConstant))
	assert.NoError(t, a.Err())

	out := buf.String()
	assert.Contains(t, out, "decoded archive header")
	assert.Contains(t, out, "BET table warning")
	assert.Contains(t, out, `table="BET table"`)
}

func TestOpenCollectsShortRegionWarnings(t *testing.T) {
	im := &mpqtest.Image{}
	im.Put(0, mpqtest.Header{
		HeaderSize:     headerSizeV3,
		FormatVersion:  FormatVersion3,
		HETTableOffset: 0x80,
		BETTableOffset: 0x100,
	}.Encode())
	im.Put(0x80, mpqtest.HET{EntryCount: 8, Data: []byte{1}}.Encode())
	im.Put(0x100, mpqtest.BET{Unknown00: 0x10, FlagCount: 2}.Encode())

	a, err := Open(im.Reader())
	require.NoError(t, err)
	require.NoError(t, a.Err(), "short regions are warnings, not failures")
	assert.Equal(t, TableDecoded, a.HETTable.State)
	assert.Equal(t, TableDecoded, a.BETTable.State)

	require.Len(t, a.Warnings, 2)
	assert.ErrorIs(t, a.Warnings[0], ErrTruncatedData)
	assert.Contains(t, a.Warnings[0].Error(), "HET table")
	assert.ErrorIs(t, a.Warnings[1], ErrTruncatedData)
	assert.Contains(t, a.Warnings[1].Error(), "BET table")
}
