// Package memory implements registry.Registry as an in-memory map, for
// deterministic resolver tests and fixtures.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/plow-dev/plow/internal/registry"
	"github.com/plow-dev/plow/internal/semver"
)

// Registry is an in-memory, fully synchronous implementation of
// registry.Registry. Construct one with New: AddVersion and SetArtifact
// write into the maps New allocates.
type Registry struct {
	mu       sync.RWMutex
	versions map[string][]registry.PackageVersionWithMeta
	artifacts map[string][]byte
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		versions:  map[string][]registry.PackageVersionWithMeta{},
		artifacts: map[string][]byte{},
	}
}

// AddVersion registers one published version of a package.
func (r *Registry) AddVersion(v registry.PackageVersionWithMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[v.Name] = append(r.versions[v.Name], v)
}

// SetArtifact records the bytes returned by RetrieveArtifact for (name,
// version), keyed by cksum so tests can also exercise integrity failures by
// registering bytes that don't hash to the version's advertised cksum.
func (r *Registry) SetArtifact(cksum string, contents []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[cksum] = contents
}

// AllAvailableVersions implements registry.Registry.
func (r *Registry) AllAvailableVersions(_ context.Context, name string) ([]registry.PackageVersionWithMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.versions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrUnknownPackage, name)
	}
	out := make([]registry.PackageVersionWithMeta, len(versions))
	copy(out, versions)
	return out, nil
}

// GetVersionMetadata implements registry.Registry.
func (r *Registry) GetVersionMetadata(ctx context.Context, name string, version semver.Version) (registry.PackageVersionWithMeta, error) {
	versions, err := r.AllAvailableVersions(ctx, name)
	if err != nil {
		return registry.PackageVersionWithMeta{}, err
	}
	for _, v := range versions {
		if v.Version.Equal(version) {
			return v, nil
		}
	}
	return registry.PackageVersionWithMeta{}, fmt.Errorf("%w: %s %s", registry.ErrUnknownVersion, name, version)
}

// RetrieveArtifact implements registry.Registry.
func (r *Registry) RetrieveArtifact(ctx context.Context, name string, version semver.Version) ([]byte, error) {
	meta, err := r.GetVersionMetadata(ctx, name, version)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	contents, ok := r.artifacts[meta.Cksum]
	if !ok {
		return nil, fmt.Errorf("no artifact bytes registered for cksum %s", meta.Cksum)
	}
	return contents, nil
}
