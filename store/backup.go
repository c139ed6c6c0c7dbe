package store

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// BackupTestCase copies the original test case at seedPath to
// seedPath+".orig" before the first modification, per spec.md §6's
// one-shot backup step. An existing backup is left untouched: a second
// run against an already-reduced file must not overwrite the one true
// original.
func BackupTestCase(seedPath string) error {
	backupPath := seedPath + ".orig"
	if _, err := os.Stat(backupPath); err == nil {
		return nil
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("store: read %s: %w", seedPath, err)
	}

	if err := renameio.WriteFile(backupPath, data, 0o644); err != nil {
		return fmt.Errorf("store: write backup %s: %w", backupPath, err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp file + rename, so a
// crash mid-write never leaves a torn candidate or seed file on disk.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
