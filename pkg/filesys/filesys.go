// Package filesys provides the file-level collaborators the store consumes
// from its host: directory setup, the positional FileIO interface with its
// OS-backed and in-memory implementations, and the sequential reader used by
// load-time recovery.
package filesys

import (
	"errors"
	"os"
)

// ErrIsNotDir is returned when a path expected to be a directory exists but
// is a regular file.
var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates the directory at dirPath (and any missing parents) with
// the given permissions.
//
// If the directory already exists:
//   - If force is true, it proceeds without error.
//   - If force is false, it returns an error.
//
// It also returns an error if the existing path is a file rather than a
// directory.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return os.ErrExist
		}
		return err
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}
	return os.Chmod(dirPath, permission)
}

// Exists reports whether a file or directory exists at path. The error is
// non-nil only for stat failures other than non-existence.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
