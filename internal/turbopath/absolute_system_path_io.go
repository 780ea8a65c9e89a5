package turbopath

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
)

// UntypedJoin appends raw string segments to this AbsoluteSystemPath,
// convenient for joining literal path components (config directory
// names, file names, ...).
func (p AbsoluteSystemPath) UntypedJoin(segments ...string) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(p.ToString(), filepath.Join(segments...)))
}

// Dir implements filepath.Dir for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Dir() AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Dir(p.ToString()))
}

// Base implements filepath.Base for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Base() string {
	return filepath.Base(p.ToString())
}

// Ext implements filepath.Ext for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Ext() string {
	return filepath.Ext(p.ToString())
}

// Lstat implements os.Lstat for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Lstat() (os.FileInfo, error) {
	return os.Lstat(p.ToString())
}

// Stat implements os.Stat for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Stat() (os.FileInfo, error) {
	return os.Stat(p.ToString())
}

// FileExists returns true if the given path exists and is not a directory.
func (p AbsoluteSystemPath) FileExists() bool {
	info, err := p.Lstat()
	return err == nil && !info.IsDir()
}

// DirExists returns true if the given path exists and is a directory.
func (p AbsoluteSystemPath) DirExists() bool {
	info, err := p.Lstat()
	return err == nil && info.IsDir()
}

// Open implements os.Open for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Open() (*os.File, error) {
	return os.Open(p.ToString())
}

// OpenFile implements os.OpenFile for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) OpenFile(flags int, mode os.FileMode) (*os.File, error) {
	return os.OpenFile(p.ToString(), flags, mode)
}

// Create implements os.Create for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Create() (*os.File, error) {
	return os.Create(p.ToString())
}

// ReadFile reads the contents of the file at this path.
func (p AbsoluteSystemPath) ReadFile() ([]byte, error) {
	return ioutil.ReadFile(p.ToString())
}

// WriteFile writes the given contents to the file at this path.
func (p AbsoluteSystemPath) WriteFile(contents []byte, mode os.FileMode) error {
	return ioutil.WriteFile(p.ToString(), contents, mode)
}

// MkdirAll implements os.MkdirAll for an AbsoluteSystemPath, using the
// given mode.
func (p AbsoluteSystemPath) MkdirAll(mode os.FileMode) error {
	return os.MkdirAll(p.ToString(), mode)
}

// Mkdir implements os.Mkdir for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Mkdir(mode os.FileMode) error {
	return os.Mkdir(p.ToString(), mode)
}

// EnsureDir ensures that the directory containing this file exists,
// recovering from the case where that directory path is itself a stray
// file.
func (p AbsoluteSystemPath) EnsureDir() error {
	dir := p.Dir()
	err := os.MkdirAll(dir.ToString(), dirPermissions)
	if err != nil && dir.FileExists() {
		log.Printf("removing file %s; a directory is required", dir)
		if rmErr := os.Remove(dir.ToString()); rmErr != nil {
			return err
		}
		return os.MkdirAll(dir.ToString(), dirPermissions)
	}
	return err
}

// Remove removes the file or empty directory at this path.
func (p AbsoluteSystemPath) Remove() error {
	return os.Remove(p.ToString())
}

// RemoveAll implements os.RemoveAll for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) RemoveAll() error {
	return os.RemoveAll(p.ToString())
}

// Rename implements os.Rename for two AbsoluteSystemPaths.
func (p AbsoluteSystemPath) Rename(dest AbsoluteSystemPath) error {
	return os.Rename(p.ToString(), dest.ToString())
}

// Symlink implements os.Symlink(target, p) for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Symlink(target string) error {
	return os.Symlink(target, p.ToString())
}

// Readlink implements os.Readlink for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Readlink() (string, error) {
	return os.Readlink(p.ToString())
}

// Link implements os.Link(p, to), hard-linking this path to the destination.
func (p AbsoluteSystemPath) Link(to string) error {
	return os.Link(p.ToString(), to)
}

// RelativePathString returns the relative path from this path to another
// absolute path, as a plain string.
func (p AbsoluteSystemPath) RelativePathString(other string) (string, error) {
	return filepath.Rel(p.ToString(), other)
}

// EvalSymlinks resolves symlinks in this path, returning the concrete path.
func (p AbsoluteSystemPath) EvalSymlinks() (AbsoluteSystemPath, error) {
	resolved, err := filepath.EvalSymlinks(p.ToString())
	if err != nil {
		return "", err
	}
	return AbsoluteSystemPath(resolved), nil
}

// ToStringDuringMigration exists purely to mark call sites that have not
// yet been converted to operate directly on AbsoluteSystemPath.
func (p AbsoluteSystemPath) ToStringDuringMigration() string {
	return p.ToString()
}

const dirPermissions = os.ModeDir | 0775

// MkdirAllMode ensures a directory exists at this path with exactly the
// given mode, creating it (and any missing parents) if necessary and
// chmod-ing it into place if it already exists with a different mode.
func (p AbsoluteSystemPath) MkdirAllMode(mode os.FileMode) error {
	info, err := p.Lstat()
	if err == nil {
		if !info.IsDir() {
			if rmErr := p.Remove(); rmErr != nil {
				return rmErr
			}
		} else {
			if info.Mode() == mode {
				return nil
			}
			return os.Chmod(p.ToString(), mode)
		}
	}
	if err := os.MkdirAll(p.ToString(), mode); err != nil {
		return err
	}
	// The umask can strip bits from a freshly created directory.
	return os.Chmod(p.ToString(), mode)
}

