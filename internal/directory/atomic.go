package directory

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// tempFile is the subset of *os.File used while staging a replacement.
type tempFile interface {
	io.Writer
	Name() string
	Sync() error
	Close() error
}

// createTemp stages replacements next to the target so the final rename
// stays on one filesystem. Tests swap it to inject write failures.
var createTemp = func(dir, pattern string) (tempFile, error) {
	return os.CreateTemp(dir, pattern)
}

// writeFileAtomic writes through fn into a temp file and renames it over path.
func writeFileAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := createTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "directory: create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
			zap.L().Warn("directory: remove temp file", zap.String("path", tmpName), zap.Error(rmErr))
		}
	}()

	if err := fn(tmp); err != nil {
		return eris.Wrapf(err, "directory: write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrapf(err, "directory: sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "directory: close %s", tmpName)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return eris.Wrapf(err, "directory: chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "directory: rename %s to %s", tmpName, path)
	}
	committed = true
	return nil
}
