package fs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/spf13/afero"
)

// https://github.com/thought-machine/please/blob/master/src/fs/fs.go

// DirPermissions are the default permission bits we apply to directories.
const DirPermissions = os.ModeDir | 0775

// EnsureDir ensures that the directory of the given file has been created.
func EnsureDir(filename string) error {
	dir := filepath.Dir(filename)
	err := os.MkdirAll(dir, DirPermissions)
	if err != nil && FileExists(dir) {
		// It looks like this is a file and not a directory. Attempt to remove it; this can
		// happen in some cases if a directory is replaced by a single file of the same name.
		log.Printf("Attempting to remove file %s; a subdirectory is required", dir)
		if err2 := os.Remove(dir); err2 == nil {
			err = os.MkdirAll(dir, DirPermissions)
		} else {
			return err
		}
	}
	return err
}

// PathExists returns true if the given path exists, as a file or a directory.
func PathExists(filename string) bool {
	_, err := os.Lstat(filename)
	return err == nil
}

// FileExists returns true if the given path exists and is a file.
func FileExists(filename string) bool {
	info, err := os.Lstat(filename)
	return err == nil && !info.IsDir()
}

// IsSymlink returns true if the given path exists and is a symlink.
func IsSymlink(filename string) bool {
	info, err := os.Lstat(filename)
	return err == nil && (info.Mode()&os.ModeSymlink) != 0
}

// IsDirectory checks if a given path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DirContainsPath returns true if the path 'target' is contained within 'dir'.
// Expects both paths to be absolute and does not verify that either path exists.
func DirContainsPath(dir string, target string) (bool, error) {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false, err
	}
	nonRelativeSentinel := ".." + string(filepath.Separator)
	return !strings.HasPrefix(rel, nonRelativeSentinel) && rel != "..", nil
}

// UnsafeToAbsoluteSystemPath casts a string known by the caller to already be
// an absolute path into an AbsoluteSystemPath, without validation. Used at
// the boundary with APIs (godirwalk, os) that only deal in strings.
func UnsafeToAbsoluteSystemPath(s string) turbopath.AbsoluteSystemPath {
	return turbopath.AbsoluteSystemPathFromUpstream(s)
}

// EnsureDirFS ensures that the directory containing filename exists on the
// given afero filesystem, recovering if that directory path is itself
// occupied by a file.
func EnsureDirFS(fsys afero.Fs, filename turbopath.AbsoluteSystemPath) error {
	dir := filename.Dir()
	err := fsys.MkdirAll(dir.ToString(), DirPermissions)
	if err != nil {
		if info, statErr := fsys.Stat(dir.ToString()); statErr == nil && !info.IsDir() {
			if rmErr := fsys.Remove(dir.ToString()); rmErr != nil {
				return fmt.Errorf("removing existing file at %v before creating directories: %w", dir, rmErr)
			}
			return fsys.MkdirAll(dir.ToString(), DirPermissions)
		}
		return fmt.Errorf("creating directories at %v: %w", dir, err)
	}
	return nil
}
