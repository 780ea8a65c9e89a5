package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrigin(t *testing.T) (turbopath.AbsoluteSystemPath, turbopath.AbsoluteSystemPath) {
	t.Helper()
	tempDir := t.TempDir()
	workspaceRoot := turbopath.AbsoluteSystemPathFromUpstream(filepath.Join(tempDir, "workspaces"))
	require.NoError(t, workspaceRoot.MkdirAll(0775))

	originPath := turbopath.AbsoluteSystemPathFromUpstream(filepath.Join(tempDir, "Berlin.ttl"))
	require.NoError(t, os.WriteFile(originPath.ToString(), []byte("@base <http://field33.com/ontologies/@cities/Berlin/> ."), 0644))

	return workspaceRoot, originPath
}

func TestWriteCreatesDepsAndCatalog(t *testing.T) {
	workspaceRoot, origin := setupOrigin(t)

	deps := []ResolvedDependency{
		{OntologyIRI: "http://field33.com/ontologies/@cities/Frankfurt/", Cksum: "abc123", Contents: []byte("frankfurt contents")},
	}

	dir, err := Write(workspaceRoot, origin, deps)
	require.NoError(t, err)

	assert.FileExists(t, dir.UntypedJoin("Berlin.ttl").ToString())
	assert.FileExists(t, dir.UntypedJoin(DepsDirName, "abc123.ttl").ToString())
	assert.FileExists(t, dir.UntypedJoin(CatalogFileName).ToString())

	catalog, err := os.ReadFile(dir.UntypedJoin(CatalogFileName).ToString())
	require.NoError(t, err)
	assert.Contains(t, string(catalog), "http://field33.com/ontologies/@cities/Frankfurt/")
	assert.Contains(t, string(catalog), "deps/abc123.ttl")
}

func TestWriteIsIdempotent(t *testing.T) {
	workspaceRoot, origin := setupOrigin(t)
	deps := []ResolvedDependency{{OntologyIRI: "http://example.com/x/", Cksum: "xyz", Contents: []byte("x")}}

	dir1, err := Write(workspaceRoot, origin, deps)
	require.NoError(t, err)
	dir2, err := Write(workspaceRoot, origin, deps)
	require.NoError(t, err)

	assert.Equal(t, dir1, dir2)
	assert.FileExists(t, dir2.UntypedJoin(DepsDirName, "xyz.ttl").ToString())
}

func TestDirForIsDeterministic(t *testing.T) {
	root := turbopath.AbsoluteSystemPathFromUpstream("/home/user/Documents/plow")
	a := turbopath.AbsoluteSystemPathFromUpstream("/home/user/fields/Berlin.ttl")
	b := turbopath.AbsoluteSystemPathFromUpstream("/home/user/fields/Berlin.ttl")
	assert.Equal(t, DirFor(root, a), DirFor(root, b))

	c := turbopath.AbsoluteSystemPathFromUpstream("/home/user/fields/Hamburg.ttl")
	assert.NotEqual(t, DirFor(root, a), DirFor(root, c))
}
