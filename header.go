// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "fmt"

// DecodeHeader decodes the archive header whose magic begins at anchor.
//
// The extension blocks are read according to FormatVersion. A version newer
// than V4 is decoded with the V4 layout; any further bytes declared by
// HeaderSize are kept in Unparsed, as far as the source holds them.
func DecodeHeader(src Source, anchor int64) (*Header, error) {
	return decodeHeader(newByteSource(src), anchor)
}

func decodeHeader(s byteSource, anchor int64) (*Header, error) {
	if err := s.expectMagic(anchor, headerMagic); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	h := &Header{}
	off := anchor + 4
	n, err := s.record(off, &h.HeaderV1)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	off += n

	extensions := []struct {
		version uint16
		block   any
	}{
		{FormatVersion2, &h.HeaderV2},
		{FormatVersion3, &h.HeaderV3},
		{FormatVersion4, &h.HeaderV4},
	}
	layout := h.layout()
	for _, ext := range extensions {
		if layout < ext.version {
			break
		}
		n, err := s.record(off, ext.block)
		if err != nil {
			return nil, fmt.Errorf("read V%d header fields: %w", ext.version+1, err)
		}
		off += n
	}

	if h.FormatVersion > FormatVersion4 && h.HeaderSize > headerSizeV4 {
		extra := min(int64(h.HeaderSize)-headerSizeV4, max(s.size-off, 0))
		if h.Unparsed, err = s.bytes(off, extra); err != nil {
			return nil, fmt.Errorf("read unparsed header bytes: %w", err)
		}
	}

	return h, nil
}
