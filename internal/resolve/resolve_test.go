package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/plow-dev/plow/internal/constraint"
	"github.com/plow-dev/plow/internal/registry"
	"github.com/plow-dev/plow/internal/registry/memory"
	"github.com/plow-dev/plow/internal/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, literal string) semver.Range {
	t.Helper()
	r, _, err := constraint.ParseRequirement(literal)
	require.NoError(t, err)
	return r
}

func dep(t *testing.T, fullName, requirement string) registry.Dependency {
	return registry.Dependency{FullName: fullName, Requirement: requirement, Range: mustRange(t, requirement)}
}

func TestResolveS1NoTransitiveDeps(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Berlin", Version: semver.New(0, 0, 1),
		Dependencies: []registry.Dependency{
			dep(t, "@cities/Frankfurt", "=0.0.1"),
			dep(t, "@cities/Hamburg", "=0.0.1"),
		},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: semver.New(0, 0, 1)})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Hamburg", Version: semver.New(0, 0, 1)})

	solver := NewSolver(reg, Opts{})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Berlin", "=0.0.1")})
	require.NoError(t, err)

	assert.Equal(t, Solution{
		"@cities/Berlin":    semver.New(0, 0, 1),
		"@cities/Frankfurt": semver.New(0, 0, 1),
		"@cities/Hamburg":   semver.New(0, 0, 1),
	}, sol)
}

func TestResolveS2CaretSelectsHighest(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Berlin", Version: semver.New(1, 5, 5),
		Dependencies: []registry.Dependency{dep(t, "@cities/Frankfurt", "1.x")},
	})
	for _, v := range []semver.Version{semver.New(1, 1, 1), semver.New(1, 3, 2), semver.New(1, 9, 12)} {
		reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: v})
	}

	solver := NewSolver(reg, Opts{})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Berlin", "=1.5.5")})
	require.NoError(t, err)
	assert.Equal(t, semver.New(1, 9, 12), sol["@cities/Frankfurt"])
}

func TestResolveS3CycleAccepted(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Berlin", Version: semver.New(0, 2, 0),
		Dependencies: []registry.Dependency{dep(t, "@cities/Frankfurt", "=0.0.1")},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Frankfurt", Version: semver.New(0, 0, 1),
		Dependencies: []registry.Dependency{dep(t, "@cities/Berlin", "=0.2.0")},
	})

	solver := NewSolver(reg, Opts{})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Berlin", "=0.2.0")})
	require.NoError(t, err)
	assert.Equal(t, semver.New(0, 2, 0), sol["@cities/Berlin"])
	assert.Equal(t, semver.New(0, 0, 1), sol["@cities/Frankfurt"])
}

func TestResolveS4IncompatibleTransitiveFails(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Berlin", Version: semver.New(0, 2, 0),
		Dependencies: []registry.Dependency{
			dep(t, "@cities/Hamburg", "=0.2.0"),
			dep(t, "@cities/Frankfurt", "=0.2.0"),
		},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Hamburg", Version: semver.New(0, 2, 0),
		Dependencies: []registry.Dependency{dep(t, "@cities/Mainz", ">=1.0.0")},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Frankfurt", Version: semver.New(0, 2, 0),
		Dependencies: []registry.Dependency{dep(t, "@cities/Mainz", "<1.0.0")},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Mainz", Version: semver.New(0, 9, 0)})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Mainz", Version: semver.New(1, 0, 0)})

	solver := NewSolver(reg, Opts{})
	_, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Berlin", "=0.2.0")})
	require.Error(t, err)
	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, NoSolution, resolveErr.Kind)
	assert.Contains(t, resolveErr.Message, "Mainz")
}

func TestResolveS5VersionPairIntersection(t *testing.T) {
	reg := memory.New()
	for _, v := range []semver.Version{
		semver.New(0, 0, 1), semver.New(0, 0, 2), semver.New(0, 0, 3), semver.New(0, 0, 4), semver.New(0, 0, 5),
	} {
		reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: v})
	}

	solver := NewSolver(reg, Opts{})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Frankfurt", ">0.0.1 <0.0.5")})
	require.NoError(t, err)
	assert.Equal(t, semver.New(0, 0, 4), sol["@cities/Frankfurt"])
}

func TestResolveLockfileBias(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: semver.New(1, 2, 3)})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: semver.New(1, 2, 4)})

	solver := NewSolver(reg, Opts{Lock: LockHints{"@cities/Frankfurt": semver.New(1, 2, 3)}})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Frankfurt", ">=1.0.0")})
	require.NoError(t, err)
	assert.Equal(t, semver.New(1, 2, 3), sol["@cities/Frankfurt"])
}

func TestResolveDeterministic(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@cities/Berlin", Version: semver.New(0, 0, 1),
		Dependencies: []registry.Dependency{dep(t, "@cities/Frankfurt", "=0.0.1")},
	})
	reg.AddVersion(registry.PackageVersionWithMeta{Name: "@cities/Frankfurt", Version: semver.New(0, 0, 1)})

	var results []Solution
	for i := 0; i < 3; i++ {
		solver := NewSolver(reg, Opts{})
		sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@cities/Berlin", "=0.0.1")})
		require.NoError(t, err)
		results = append(results, sol)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestResolveS6ChecksumMismatchIsCacheLayerConcern(t *testing.T) {
	// The resolver itself only selects versions; integrity verification
	// happens in the field cache (C9). This test shows that resolution
	// succeeds even though the registry holds no bytes matching the
	// advertised cksum: the resolver never fetches or hashes artifacts.
	reg := memory.New()
	contents := []byte("mismatched bytes")
	advertised := sha256.Sum256([]byte("original bytes"))
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@a/b", Version: semver.New(1, 0, 0), Cksum: hex.EncodeToString(advertised[:]),
	})
	reg.SetArtifact("irrelevant", contents)

	solver := NewSolver(reg, Opts{})
	sol, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@a/b", "=1.0.0")})
	require.NoError(t, err)
	assert.Equal(t, semver.New(1, 0, 0), sol["@a/b"])
}

func TestResolveSelfDependencyFails(t *testing.T) {
	reg := memory.New()
	reg.AddVersion(registry.PackageVersionWithMeta{
		Name: "@a/b", Version: semver.New(1, 0, 0),
		Dependencies: []registry.Dependency{dep(t, "@a/b", ">=1.0.0")},
	})

	solver := NewSolver(reg, Opts{})
	_, err := solver.Resolve(context.Background(), []registry.Dependency{dep(t, "@a/b", "=1.0.0")})
	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, SelfDependency, resolveErr.Kind)
}

func TestPostProcessMultipleVersions(t *testing.T) {
	_, err := PostProcess(map[string][]semver.Version{
		"@a/b": {semver.New(1, 0, 0), semver.New(2, 0, 0)},
	})
	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, MultipleVersionsOfSamePackage, resolveErr.Kind)
}

func TestErrorRenderIncludesMessage(t *testing.T) {
	resolveErr := &Error{Kind: NoSolution, Message: "no version of @cities/Mainz satisfies every constraint"}
	rendered := resolveErr.Render()
	assert.Contains(t, rendered, "@cities/Mainz")
}
