// Package fieldcache implements the content-addressed artifact store the
// resolver populates and the workspace writer reads from (C9): bytes are
// keyed by their SHA-256 checksum and written temp-then-rename so a
// concurrent reader never observes a partial file.
package fieldcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/registry"
	"github.com/plow-dev/plow/internal/semver"
	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/spf13/afero"
)

// cacheDirTag is the Bryan Ford CACHEDIR.TAG signature string; its
// presence at a directory root tells backup tools to skip it.
const cacheDirTag = "Signature: 8a477f597d28d172789f06886806bc55\n" +
	"# This file is a cache directory tag created by plow.\n" +
	"# For information about cache directory tags see https://bford.info/cachedir/\n"

// ErrIntegrityMismatch is returned when downloaded bytes do not hash to
// their advertised cksum. The check runs before anything is written to the
// cache, so no file is left behind when this is returned.
type ErrIntegrityMismatch struct {
	Name, Version, Expected, Actual string
}

func (e *ErrIntegrityMismatch) Error() string {
	return fmt.Sprintf("integrity mismatch for %s %s: expected cksum %s, got %s", e.Name, e.Version, e.Expected, e.Actual)
}

// Cache is the content-addressed artifact store rooted at <plow_home>/registry/artifact_cache.
type Cache struct {
	fsys afero.Fs
	root turbopath.AbsoluteSystemPath
}

// New returns a Cache rooted under plowHome, ensuring the directory and its
// CACHEDIR.TAG exist.
func New(fsys afero.Fs, plowHome turbopath.AbsoluteSystemPath) (*Cache, error) {
	root := plowHome.UntypedJoin("registry", "artifact_cache")
	if err := fsys.MkdirAll(root.ToString(), fs.DirPermissions); err != nil {
		return nil, fmt.Errorf("creating field cache directory %v: %w", root, err)
	}
	tagPath := root.UntypedJoin("CACHEDIR.TAG")
	if exists, err := afero.Exists(fsys, tagPath.ToString()); err == nil && !exists {
		if err := afero.WriteFile(fsys, tagPath.ToString(), []byte(cacheDirTag), 0644); err != nil {
			return nil, fmt.Errorf("writing CACHEDIR.TAG: %w", err)
		}
	}
	return &Cache{fsys: fsys, root: root}, nil
}

// pathFor returns the on-disk path for a given checksum's artifact.
func (c *Cache) pathFor(cksum string) turbopath.AbsoluteSystemPath {
	return c.root.UntypedJoin(cksum + ".ttl")
}

// Has reports whether an artifact for cksum is already cached.
func (c *Cache) Has(cksum string) bool {
	exists, err := afero.Exists(c.fsys, c.pathFor(cksum).ToString())
	return err == nil && exists
}

// Read returns the cached bytes for cksum. Callers should check Has first;
// Read itself simply surfaces the underlying I/O error on a miss.
func (c *Cache) Read(cksum string) ([]byte, error) {
	return afero.ReadFile(c.fsys, c.pathFor(cksum).ToString())
}

// put writes contents to cksum's final path via a temp-then-rename,
// ensuring no partial file ever appears under the final name.
func (c *Cache) put(cksum string, contents []byte) error {
	tempPath := c.root.UntypedJoin(fmt.Sprintf(".%s-%s.tmp", cksum, uuid.NewString()))
	if err := afero.WriteFile(c.fsys, tempPath.ToString(), contents, 0644); err != nil {
		return fmt.Errorf("writing temp artifact file: %w", err)
	}
	if err := c.fsys.Rename(tempPath.ToString(), c.pathFor(cksum).ToString()); err != nil {
		_ = c.fsys.Remove(tempPath.ToString())
		return fmt.Errorf("renaming temp artifact file into place: %w", err)
	}
	return nil
}

// Ensure retrieves the artifact for (name, version) from reg if it is not
// already cached, verifies its SHA-256 against meta.Cksum, and writes it
// into the cache. On a miss it performs exactly one network call; on a
// cache hit, none. On an integrity mismatch, no file appears under
// <cksum>.ttl and an *ErrIntegrityMismatch is returned.
func (c *Cache) Ensure(ctx context.Context, reg registry.Registry, name string, version semver.Version, meta registry.PackageVersionWithMeta) ([]byte, error) {
	if c.Has(meta.Cksum) {
		return c.Read(meta.Cksum)
	}

	contents, err := reg.RetrieveArtifact(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("retrieving artifact for %s %s: %w", name, version, err)
	}

	sum := sha256.Sum256(contents)
	actual := hex.EncodeToString(sum[:])
	if actual != meta.Cksum {
		return nil, &ErrIntegrityMismatch{Name: name, Version: version.String(), Expected: meta.Cksum, Actual: actual}
	}

	if err := c.put(meta.Cksum, contents); err != nil {
		return nil, err
	}
	return contents, nil
}
