// Package store implements the versioned test-case repository and the
// reference-counted immutable temp files that candidates and seeds live
// in on disk.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// TempFile is an atomically reference-counted handle to an immutable file
// inside its own directory. The directory is removed once the last
// reference is released, so no two live TempFiles ever share a path, and
// actors may hold copies of the handle without coordinating cleanup.
type TempFile struct {
	dir  string
	path string
	refs *atomic.Int32
}

// NewTempFileIn creates a new, empty TempFile inside a fresh subdirectory
// of dir. The caller writes its content via Path before sharing the
// handle with another actor.
func NewTempFileIn(dir string) (*TempFile, error) {
	sub, err := os.MkdirTemp(dir, "preduce-")
	if err != nil {
		return nil, fmt.Errorf("store: create tempfile dir: %w", err)
	}
	path := filepath.Join(sub, "test_case")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		os.RemoveAll(sub)
		return nil, fmt.Errorf("store: init tempfile: %w", err)
	}
	refs := &atomic.Int32{}
	refs.Store(1)
	return &TempFile{dir: sub, path: path, refs: refs}, nil
}

// AnonymousTempFile creates a TempFile under the system temp root, used
// for reducer-produced candidates that have no natural parent directory.
func AnonymousTempFile() (*TempFile, error) {
	return NewTempFileIn(os.TempDir())
}

// Path returns the absolute path to the file content. The path is always
// contained within Dir.
func (t *TempFile) Path() string { return t.path }

// Dir returns the directory that uniquely owns Path.
func (t *TempFile) Dir() string { return t.dir }

// Clone returns a new handle to the same underlying file, incrementing
// the reference count. Release must be called once per Clone (and once
// for the original) to free the directory.
func (t *TempFile) Clone() *TempFile {
	t.refs.Add(1)
	return &TempFile{dir: t.dir, path: t.path, refs: t.refs}
}

// Release drops this handle's reference. When the last reference is
// released, the owning directory is removed from disk.
func (t *TempFile) Release() error {
	if t.refs.Add(-1) > 0 {
		return nil
	}
	return os.RemoveAll(t.dir)
}

// Size returns the current byte length of the file's content.
func (t *TempFile) Size() (int64, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return 0, fmt.Errorf("store: stat tempfile: %w", err)
	}
	return info.Size(), nil
}

// newTempDirName returns a collision-resistant directory name built from
// prefix and a random UUID. Nothing in the package calls it; TempFile
// directories are named by os.MkdirTemp.
func newTempDirName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
