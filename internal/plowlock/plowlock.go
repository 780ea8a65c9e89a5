// Package plowlock reads and writes Plow.lock, the TOML-serialized record
// of a prior resolution (C8).
package plowlock

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/semver"
	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/spf13/afero"
)

// FileVersion is the only lockfile format version this engine writes or
// accepts. Older formats are rejected, never upgraded.
const FileVersion = "1"

// LockFileName is the fixed filename read from and written to the
// workspace root.
const LockFileName = "Plow.lock"

const banner = "# This file is generated by plow. Do not edit it by hand.\n"

// LockedPackage is one resolved package recorded in the lockfile.
type LockedPackage struct {
	Root         bool     `toml:"root"`
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	OntologyIRI  string   `toml:"ontology_iri,omitempty"`
	Cksum        string   `toml:"cksum,omitempty"`
	Dependencies []string `toml:"dependencies"`
}

// LockFile is the top-level TOML document.
type LockFile struct {
	FileVersion string          `toml:"version"`
	Packages    []LockedPackage `toml:"field"`
}

// ErrUnsupportedFormat is returned by Read when the file's version field
// names anything other than FileVersion.
var ErrUnsupportedFormat = fmt.Errorf("lockfile format is not version %q and cannot be read; delete it to start fresh", FileVersion)

// Path returns the path to Plow.lock under workspaceRoot.
func Path(workspaceRoot turbopath.AbsoluteSystemPath) turbopath.AbsoluteSystemPath {
	return workspaceRoot.UntypedJoin(LockFileName)
}

// Read loads the lockfile at path. A missing file is not an error: it
// yields a nil *LockFile, signaling "no prior resolution".
func Read(fsys afero.Fs, path turbopath.AbsoluteSystemPath) (*LockFile, error) {
	contents, err := afero.ReadFile(fsys, path.ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading lockfile %v: %w", path, err)
	}

	var lock LockFile
	if err := toml.Unmarshal(contents, &lock); err != nil {
		return nil, fmt.Errorf("parsing lockfile %v: %w", path, err)
	}
	if lock.FileVersion != FileVersion {
		return nil, fmt.Errorf("%w (found %q)", ErrUnsupportedFormat, lock.FileVersion)
	}
	return &lock, nil
}

// Write serializes lock to path with the machine-generated banner
// prepended. It is a no-op error-wise to call with a LockFile holding no
// non-root packages; the caller decides whether writing is warranted
// (the engine writes only when resolution produced at least one
// non-root package).
func Write(fsys afero.Fs, path turbopath.AbsoluteSystemPath, lock *LockFile) error {
	lock.FileVersion = FileVersion

	sorted := append([]LockedPackage{}, lock.Packages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := range sorted {
		deps := append([]string{}, sorted[i].Dependencies...)
		sort.Strings(deps)
		sorted[i].Dependencies = deps
	}
	lock.Packages = sorted

	body, err := toml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshalling lockfile: %w", err)
	}

	if err := fs.EnsureDirFS(fsys, path); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path.ToString(), append([]byte(banner), body...), 0644)
}

// ToHints projects lock into the name -> version map the resolver
// consumes as its lockfile bias.
func ToHints(lock *LockFile) (map[string]semver.Version, error) {
	hints := map[string]semver.Version{}
	if lock == nil {
		return hints, nil
	}
	for _, pkg := range lock.Packages {
		if pkg.Root {
			continue
		}
		v, completeness, err := semver.Parse(pkg.Version)
		if err != nil {
			return nil, fmt.Errorf("lockfile entry %s has invalid version %q: %w", pkg.Name, pkg.Version, err)
		}
		if completeness != semver.Complete {
			return nil, fmt.Errorf("lockfile entry %s version %q is not complete and exact", pkg.Name, pkg.Version)
		}
		hints[pkg.Name] = v
	}
	return hints, nil
}
