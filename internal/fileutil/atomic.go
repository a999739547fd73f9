// Package fileutil provides file system utilities.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists is returned by WriteFileAtomic when the target exists and
// overwrite is false.
var ErrExists = fs.ErrExist

// WriteFileAtomic writes data to a temporary file next to filename and then
// moves it into place, so readers see either the old file or the complete
// new one. With overwrite false an existing file is left untouched and
// ErrExists is returned; the check and the write are a single link(2).
func WriteFileAtomic(filename string, data []byte, perm os.FileMode, overwrite bool) error {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // No-op once moved into place

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if overwrite {
		if err := os.Rename(tmpPath, filename); err != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		return nil
	}

	if err := os.Link(tmpPath, filename); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filename, ErrExists)
		}
		return fmt.Errorf("failed to link temp file: %w", err)
	}
	return nil
}
