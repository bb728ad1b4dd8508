// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package source opens archive images for decoding. Plain files are memory
// mapped where the platform allows it; compressed images (gzip, zstd, xz,
// lz4) are inflated into memory.
package source

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

// DefaultMaxInflated bounds the size of a decompressed image.
const DefaultMaxInflated = 4 << 30

// ErrTooLarge is returned when a compressed image inflates past the limit.
var ErrTooLarge = errors.New("inflated image exceeds limit")

// Compression identifies how an image was stored on disk.
type Compression uint8

// Supported compressions.
const (
	CompressionNone Compression = iota // Plain file, memory mapped where possible
	CompressionGzip
	CompressionZstd
	CompressionXZ
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionXZ:
		return "xz"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// Detect returns the compression whose magic prefixes head.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, []byte{0x1F, 0x8B}):
		return CompressionGzip
	case bytes.HasPrefix(head, []byte{0x28, 0xB5, 0x2F, 0xFD}):
		return CompressionZstd
	case bytes.HasPrefix(head, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}):
		return CompressionXZ
	case bytes.HasPrefix(head, []byte{0x04, 0x22, 0x4D, 0x18}):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// File is an archive image. It satisfies mpq.Source and is safe for
// concurrent reads.
type File struct {
	*bytes.Reader

	name        string
	data        []byte
	compression Compression
	release     func() error
}

// Options configures Open.
type Options struct {
	// MaxInflated bounds decompressed images. Default: DefaultMaxInflated.
	MaxInflated int64
}

// Open opens the image at path.
func Open(path string, opts Options) (*File, error) {
	if opts.MaxInflated <= 0 {
		opts.MaxInflated = DefaultMaxInflated
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 6)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	c := Detect(head[:n])
	if c == CompressionNone {
		data, release, err := mapFile(f)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", path, err)
		}
		return newFile(path, data, c, release), nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}
	data, err := inflate(bufio.NewReader(f), c, opts.MaxInflated)
	if err != nil {
		return nil, fmt.Errorf("decompress %s (%s): %w", path, c, err)
	}
	return newFile(path, data, c, nil), nil
}

// FromBytes wraps an in-memory image.
func FromBytes(name string, data []byte) *File {
	return newFile(name, data, CompressionNone, nil)
}

func newFile(name string, data []byte, c Compression, release func() error) *File {
	return &File{
		Reader:      bytes.NewReader(data),
		name:        name,
		data:        data,
		compression: c,
		release:     release,
	}
}

func inflate(r io.Reader, c Compression, limit int64) ([]byte, error) {
	var dec io.Reader
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		dec = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		dec = zr
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		dec = xr
	case CompressionLZ4:
		dec = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}

	data, err := io.ReadAll(io.LimitReader(dec, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// Name returns the path or name the image was opened with.
func (f *File) Name() string { return f.name }

// Compression returns how the image was stored.
func (f *File) Compression() Compression { return f.compression }

// Fingerprint returns the hex BLAKE3-256 digest of the (inflated) image.
func (f *File) Fingerprint() string {
	sum := blake3.Sum256(f.data)
	return hex.EncodeToString(sum[:])
}

// Close releases the mapping, if any. The File must not be used afterwards.
func (f *File) Close() error {
	if f.release == nil {
		return nil
	}
	release := f.release
	f.release = nil
	return release()
}
