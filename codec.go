// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Source is a random-access byte source with a known length.
// *bytes.Reader and *io.SectionReader satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// byteSource performs bounds-checked little-endian reads at explicit offsets.
// It keeps no position, so reads may happen in any order.
type byteSource struct {
	r    io.ReaderAt
	size int64
}

func newByteSource(src Source) byteSource {
	return byteSource{r: src, size: src.Size()}
}

// contains reports whether n bytes starting at off lie inside the source.
func (s byteSource) contains(off, n int64) bool {
	return off >= 0 && n >= 0 && off <= s.size && n <= s.size-off
}

func (s byteSource) bytes(off int64, n int64) ([]byte, error) {
	if !s.contains(off, n) {
		return nil, fmt.Errorf("read %d bytes at 0x%X of %d: %w", n, off, s.size, ErrTruncatedData)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := s.r.ReadAt(buf, off)
	if int64(got) == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %d bytes at 0x%X: got %d: %w", n, off, got, ErrTruncatedData)
	}
	return nil, fmt.Errorf("read at 0x%X: %w", off, err)
}

func (s byteSource) u16(off int64) (uint16, error) {
	b, err := s.bytes(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s byteSource) u32(off int64) (uint32, error) {
	b, err := s.bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s byteSource) u64(off int64) (uint64, error) {
	b, err := s.bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// expectMagic checks the 4-byte tag at off.
func (s byteSource) expectMagic(off int64, want uint32) error {
	got, err := s.u32(off)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("at 0x%X: got %q, want %q: %w", off, magicString(got), magicString(want), ErrInvalidMagic)
	}
	return nil
}

// record decodes a fixed-size struct of plain integer and byte-array fields.
// It returns the number of bytes consumed.
func (s byteSource) record(off int64, v any) (int64, error) {
	n := binary.Size(v)
	if n < 0 {
		return 0, fmt.Errorf("record %T has no fixed size", v)
	}
	b, err := s.bytes(off, int64(n))
	if err != nil {
		return 0, err
	}
	if _, err := binary.Decode(b, binary.LittleEndian, v); err != nil {
		return 0, fmt.Errorf("decode %T: %w", v, err)
	}
	return int64(n), nil
}

func magicString(m uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], m)
	return string(b[:])
}
