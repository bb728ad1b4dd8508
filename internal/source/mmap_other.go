// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

//go:build !(darwin || linux)

package source

import (
	"fmt"
	"io"
	"os"
)

// mapFile reads f into memory on platforms without mmap support here.
func mapFile(f *os.File) ([]byte, func() error, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	return data, nil, nil
}
