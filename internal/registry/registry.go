// Package registry defines the capability the resolver consumes to learn
// about package versions and fetch their artifact bytes (C6). Two
// implementations live in the memory and composite subpackages; only this
// contract binds internal/resolve.
package registry

import (
	"context"
	"errors"

	"github.com/plow-dev/plow/internal/semver"
)

// ErrUnknownPackage is returned when a name has no known versions at all.
var ErrUnknownPackage = errors.New("unknown package")

// ErrUnknownVersion is returned when a name is known but version is not.
var ErrUnknownVersion = errors.New("unknown version")

// Dependency is one edge out of a package version: the full name of the
// dependency, the raw requirement literal as written in the manifest or
// index, and the Range it was parsed into.
type Dependency struct {
	FullName    string
	Requirement string
	Range       semver.Range
}

// PackageVersionWithMeta is the metadata the resolver needs for one
// concrete (name, version) pair.
type PackageVersionWithMeta struct {
	Name         string
	Version      semver.Version
	OntologyIRI  string
	Dependencies []Dependency
	Cksum        string
}

// Registry is the capability set the resolver (C7) is built against.
type Registry interface {
	// AllAvailableVersions returns every known version of name, in any
	// order; the resolver is responsible for sorting.
	AllAvailableVersions(ctx context.Context, name string) ([]PackageVersionWithMeta, error)

	// GetVersionMetadata returns the checksum, ontology IRI and
	// dependencies of one exact (name, version) pair.
	GetVersionMetadata(ctx context.Context, name string, version semver.Version) (PackageVersionWithMeta, error)

	// RetrieveArtifact fetches the Turtle bytes for one exact (name,
	// version) pair.
	RetrieveArtifact(ctx context.Context, name string, version semver.Version) ([]byte, error)
}
