// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// userDataFixedSize covers the magic and the three size fields.
const userDataFixedSize = 16

// UserData is the optional preamble stored before the archive header.
type UserData struct {
	UserDataSize       uint32 // Bytes reserved for user data, fixed fields included
	HeaderOffset       uint32 // Offset of the archive header from the user data anchor
	UserDataHeaderSize uint32 // Length of Content

	// Content is the user data header that follows the fixed fields. It is
	// nil when the declared size runs past the end of the source.
	Content []byte
}

// DecodeUserData decodes a user data block whose magic begins at anchor.
// ErrInvalidMagic means no user data is stored there; callers then look for
// the archive header at the same anchor.
func DecodeUserData(src Source, anchor int64) (*UserData, error) {
	return decodeUserData(newByteSource(src), anchor)
}

func decodeUserData(s byteSource, anchor int64) (*UserData, error) {
	if err := s.expectMagic(anchor, userDataMagic); err != nil {
		return nil, fmt.Errorf("user data: %w", err)
	}

	var fields [3]uint32
	for i := range fields {
		v, err := s.u32(anchor + 4 + int64(i)*4)
		if err != nil {
			return nil, fmt.Errorf("read user data: %w", err)
		}
		fields[i] = v
	}
	u := &UserData{
		UserDataSize:       fields[0],
		HeaderOffset:       fields[1],
		UserDataHeaderSize: fields[2],
	}

	contentOff := anchor + userDataFixedSize
	if s.contains(contentOff, int64(u.UserDataHeaderSize)) {
		content, err := s.bytes(contentOff, int64(u.UserDataHeaderSize))
		if err != nil {
			return nil, fmt.Errorf("read user data content: %w", err)
		}
		u.Content = content
	}

	return u, nil
}

// HeaderAnchor returns the absolute position of the archive header given the
// absolute position of the user data.
func (u *UserData) HeaderAnchor(anchor int64) int64 {
	return anchor + int64(u.HeaderOffset)
}

// MarshalBinary encodes the user data block: fixed fields then Content.
func (u *UserData) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, userDataFixedSize+len(u.Content))
	b = binary.LittleEndian.AppendUint32(b, userDataMagic)
	b = binary.LittleEndian.AppendUint32(b, u.UserDataSize)
	b = binary.LittleEndian.AppendUint32(b, u.HeaderOffset)
	b = binary.LittleEndian.AppendUint32(b, u.UserDataHeaderSize)
	return append(b, u.Content...), nil
}
