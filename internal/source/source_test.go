// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package source

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/suprsokr/go-mpqinfo/internal/mpqtest"
)

func sampleImage() []byte {
	h := mpqtest.Header{HeaderSize: 0x20, ArchiveSize: 0x20}
	return append(h.Encode(), bytes.Repeat([]byte{0xAB}, 100)...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func compress(t *testing.T, c Compression, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	case CompressionZstd:
		w, err = zstd.NewWriter(&buf)
	case CompressionXZ:
		w, err = xz.NewWriter(&buf)
	case CompressionLZ4:
		w = lz4.NewWriter(&buf)
	default:
		t.Fatalf("no writer for %s", c)
	}
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenPlainFile(t *testing.T) {
	data := sampleImage()
	f, err := Open(writeFile(t, "plain.mpq", data), Options{})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, CompressionNone, f.Compression())
	assert.Equal(t, int64(len(data)), f.Size())

	got := make([]byte, 4)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, data[:4], got)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close is a no-op")
}

func TestOpenEmptyFile(t *testing.T) {
	f, err := Open(writeFile(t, "empty.mpq", nil), Options{})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(0), f.Size())
}

func TestOpenCompressed(t *testing.T) {
	data := sampleImage()
	for _, c := range []Compression{CompressionGzip, CompressionZstd, CompressionXZ, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			path := writeFile(t, "archive.mpq."+c.String(), compress(t, c, data))
			f, err := Open(path, Options{})
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, c, f.Compression())
			assert.Equal(t, int64(len(data)), f.Size())

			got := make([]byte, len(data))
			_, err = f.ReadAt(got, 0)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestOpenInflateLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 4096)
	path := writeFile(t, "big.mpq.zst", compress(t, CompressionZstd, data))

	_, err := Open(path, Options{MaxInflated: 1024})
	require.ErrorIs(t, err, ErrTooLarge)

	f, err := Open(path, Options{MaxInflated: 4096})
	require.NoError(t, err)
	assert.Equal(t, int64(4096), f.Size())
}

func TestOpenCorruptCompressed(t *testing.T) {
	raw := compress(t, CompressionGzip, sampleImage())
	raw = raw[:len(raw)/2]
	_, err := Open(writeFile(t, "broken.mpq.gz", raw), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mpq"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		head []byte
		want Compression
	}{
		{[]byte("MPQ\x1A"), CompressionNone},
		{[]byte{0x1F, 0x8B, 0x08}, CompressionGzip},
		{[]byte{0x28, 0xB5, 0x2F, 0xFD}, CompressionZstd},
		{[]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, CompressionXZ},
		{[]byte{0x04, 0x22, 0x4D, 0x18}, CompressionLZ4},
		{nil, CompressionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Detect(tt.head), "head %x", tt.head)
	}
}

func TestFingerprint(t *testing.T) {
	data := sampleImage()
	sum := blake3.Sum256(data)

	mem := FromBytes("mem", data)
	assert.Equal(t, "mem", mem.Name())

	gz, err := Open(writeFile(t, "a.mpq.gz", compress(t, CompressionGzip, data)), Options{})
	require.NoError(t, err)
	defer gz.Close()

	assert.Equal(t, mem.Fingerprint(), gz.Fingerprint(), "fingerprint covers inflated bytes")
	assert.Equal(t, hex.EncodeToString(sum[:]), mem.Fingerprint())
}
