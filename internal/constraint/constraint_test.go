package constraint

import (
	"testing"

	"github.com/plow-dev/plow/internal/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirementSimpleOperators(t *testing.T) {
	cases := []struct {
		literal string
		in      []semver.Version
		notIn   []semver.Version
	}{
		{"=1.2.3", []semver.Version{semver.New(1, 2, 3)}, []semver.Version{semver.New(1, 2, 4)}},
		{">1.2.3", []semver.Version{semver.New(1, 2, 4)}, []semver.Version{semver.New(1, 2, 3)}},
		{">=1.2.3", []semver.Version{semver.New(1, 2, 3), semver.New(1, 2, 4)}, []semver.Version{semver.New(1, 2, 2)}},
		{"<1.2.3", []semver.Version{semver.New(1, 2, 2)}, []semver.Version{semver.New(1, 2, 3)}},
		{"<=1.2.3", []semver.Version{semver.New(1, 2, 3)}, []semver.Version{semver.New(1, 2, 4)}},
	}
	for _, tc := range cases {
		r, _, err := ParseRequirement(tc.literal)
		require.NoError(t, err, tc.literal)
		for _, v := range tc.in {
			assert.True(t, r.Contains(v), "%s should contain %s", tc.literal, v)
		}
		for _, v := range tc.notIn {
			assert.False(t, r.Contains(v), "%s should not contain %s", tc.literal, v)
		}
	}
}

func TestCaretExceptions(t *testing.T) {
	r, _, err := ParseRequirement("^0.0.5")
	require.NoError(t, err)
	assert.True(t, r.Equal(semver.Exact(semver.New(0, 0, 5))))

	r, _, err = ParseRequirement("^0.2.5")
	require.NoError(t, err)
	assert.True(t, r.Contains(semver.New(0, 2, 9)))
	assert.False(t, r.Contains(semver.New(0, 3, 0)))

	r, _, err = ParseRequirement("^1.2.5")
	require.NoError(t, err)
	assert.True(t, r.Contains(semver.New(1, 9, 9)))
	assert.False(t, r.Contains(semver.New(2, 0, 0)))
}

func TestCaretExceptionMajorMinorZero(t *testing.T) {
	r, _, err := ParseRequirement("^0.0")
	require.NoError(t, err)
	assert.True(t, r.Equal(semver.Between(semver.New(0, 0, 0), semver.New(0, 1, 0))))
	assert.True(t, r.Contains(semver.New(0, 0, 9)))
	assert.False(t, r.Contains(semver.New(0, 1, 0)))
}

func TestWildcard(t *testing.T) {
	r, warnings, err := ParseRequirement("*")
	require.NoError(t, err)
	assert.True(t, r.IsAny())
	assert.Contains(t, warnings, SingleWildcard)

	r, _, err = ParseRequirement("1.x")
	require.NoError(t, err)
	assert.True(t, r.Contains(semver.New(1, 5, 0)))
	assert.False(t, r.Contains(semver.New(2, 0, 0)))
}

func TestVersionPairIntersection(t *testing.T) {
	r, _, err := ParseRequirement(">0.0.1 <0.0.5")
	require.NoError(t, err)
	assert.False(t, r.Contains(semver.New(0, 0, 1)))
	assert.True(t, r.Contains(semver.New(0, 0, 4)))
	assert.False(t, r.Contains(semver.New(0, 0, 5)))
}

func TestPairWithExactFails(t *testing.T) {
	_, _, err := ParseRequirement("=1.0.0, <2.0.0")
	assert.ErrorIs(t, err, ErrNoExactPrefixOnPair)
}

func TestPairCanNotBeSolved(t *testing.T) {
	_, _, err := ParseRequirement(">2.0.0, <1.0.0")
	assert.ErrorIs(t, err, ErrCanNotBeSolved)
}

func TestEmptyLiteral(t *testing.T) {
	_, _, err := ParseRequirement("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTooManyFragments(t *testing.T) {
	_, _, err := ParseRequirement(">1.0.0, <2.0.0, >=1.5.0")
	assert.ErrorIs(t, err, ErrOnlySingleOrPair)
}

func TestBareVersionRejected(t *testing.T) {
	_, _, err := ParseRequirement("1.2.3")
	assert.ErrorIs(t, err, ErrBareVersionNotAllowed)
}
