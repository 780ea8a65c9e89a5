// Package workspace assembles the Protégé-editable mirror directory for a
// resolved field: a hard link to the origin manifest (a plain copy where
// linking fails), a deps/
// directory of resolved artifacts, and a catalog file tying import IRIs to
// those local files (C10).
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"path/filepath"

	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/turbopath"
)

// CatalogFileName is the fixed filename Protégé looks for.
const CatalogFileName = "catalog-v001.xml"

// DepsDirName is the subdirectory holding copied dependency artifacts.
const DepsDirName = "deps"

// ResolvedDependency is one entry the writer materializes into deps/ and
// the catalog.
type ResolvedDependency struct {
	// OntologyIRI is the dependency's ontology IRI, used as the catalog
	// <uri name="..."> attribute.
	OntologyIRI string
	// Cksum names the cached artifact under <plow_home>/registry/artifact_cache.
	Cksum string
	// Contents is the dependency's Turtle bytes, already verified and
	// read from the field cache.
	Contents []byte
}

// DirFor derives the workspace directory for a given origin manifest path:
// a SHA-256 digest of the origin's absolute path, under workspaceRoot, so
// re-opening the same field reuses the same on-disk layout.
func DirFor(workspaceRoot turbopath.AbsoluteSystemPath, origin turbopath.AbsoluteSystemPath) turbopath.AbsoluteSystemPath {
	sum := sha256.Sum256([]byte(origin.ToString()))
	return workspaceRoot.UntypedJoin(hex.EncodeToString(sum[:]))
}

// catalogXML mirrors the OASIS XML catalog schema narrowly: one <uri> per
// resolved dependency.
type catalogXML struct {
	XMLName xml.Name     `xml:"urn:oasis:names:tc:entity:xmlns:xml:catalog catalog"`
	URIs    []catalogURI `xml:"uri"`
}

type catalogURI struct {
	Name string `xml:"name,attr"`
	URI  string `xml:"uri,attr"`
}

// Write assembles the workspace directory for origin, containing deps. It
// is idempotent modulo removing and recreating the directory each time:
// repeated invocations with the same inputs produce the same on-disk
// state.
func Write(workspaceRoot turbopath.AbsoluteSystemPath, origin turbopath.AbsoluteSystemPath, deps []ResolvedDependency) (turbopath.AbsoluteSystemPath, error) {
	dir := DirFor(workspaceRoot, origin)

	if dir.DirExists() || dir.FileExists() {
		if err := dir.RemoveAll(); err != nil {
			return dir, fmt.Errorf("removing stale workspace directory %v: %w", dir, err)
		}
	}
	if err := dir.MkdirAll(0775); err != nil {
		return dir, fmt.Errorf("creating workspace directory %v: %w", dir, err)
	}

	manifestDest := dir.UntypedJoin(origin.Base())
	originFile := &fs.LstatCachedFile{Path: origin}
	if err := fs.CopyOrLinkFile(originFile, manifestDest.ToString(), true, true); err != nil {
		return dir, fmt.Errorf("linking origin manifest into workspace: %w", err)
	}

	depsDir := dir.UntypedJoin(DepsDirName)
	if err := depsDir.MkdirAll(0775); err != nil {
		return dir, fmt.Errorf("creating deps directory: %w", err)
	}

	catalog := catalogXML{}
	for _, dep := range deps {
		filename := dep.Cksum + ".ttl"
		destPath := depsDir.UntypedJoin(filename)
		if err := destPath.WriteFile(dep.Contents, 0644); err != nil {
			return dir, fmt.Errorf("copying dependency artifact %s into workspace: %w", filename, err)
		}
		catalog.URIs = append(catalog.URIs, catalogURI{
			Name: dep.OntologyIRI,
			URI:  filepath.Join(DepsDirName, filename),
		})
	}

	catalogBytes, err := xml.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return dir, fmt.Errorf("marshalling catalog: %w", err)
	}
	catalogBytes = append([]byte(xml.Header), catalogBytes...)

	catalogPath := dir.UntypedJoin(CatalogFileName)
	if err := catalogPath.WriteFile(catalogBytes, 0644); err != nil {
		return dir, fmt.Errorf("writing catalog file: %w", err)
	}

	return dir, nil
}
