// Package fsutil provides small filesystem helpers shared by the pipeline.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists checks if a file or directory exists.
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// EnsureDir creates a directory and all necessary parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it into place, so a crash mid-write never leaves a partial
// artifact that a later run could mistake for a valid one.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp into %s: %w", name, err)
	}
	return nil
}
