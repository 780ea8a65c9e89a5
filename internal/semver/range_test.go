package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeContains(t *testing.T) {
	r := Between(New(1, 0, 0), New(2, 0, 0))
	assert.True(t, r.Contains(New(1, 0, 0)))
	assert.True(t, r.Contains(New(1, 5, 9)))
	assert.False(t, r.Contains(New(2, 0, 0)))
	assert.False(t, r.Contains(New(0, 9, 9)))
}

func TestRangeAnyNone(t *testing.T) {
	assert.True(t, ANY.Contains(New(9, 9, 9)))
	assert.False(t, NONE.Contains(New(0, 0, 0)))
	assert.True(t, NONE.IsEmpty())
	assert.False(t, ANY.IsEmpty())
}

func TestExact(t *testing.T) {
	r := Exact(New(1, 2, 3))
	assert.True(t, r.Contains(New(1, 2, 3)))
	assert.False(t, r.Contains(New(1, 2, 4)))
	assert.False(t, r.Contains(New(1, 2, 2)))
}

func TestUnionMergesAdjacent(t *testing.T) {
	a := Between(New(1, 0, 0), New(2, 0, 0))
	b := Between(New(2, 0, 0), New(3, 0, 0))
	u := a.Union(b)
	assert.True(t, u.Contains(New(1, 5, 0)))
	assert.True(t, u.Contains(New(2, 5, 0)))
	assert.False(t, u.Contains(New(3, 0, 0)))
}

func TestUnionDisjoint(t *testing.T) {
	a := Exact(New(1, 0, 0))
	b := Exact(New(3, 0, 0))
	u := a.Union(b)
	assert.True(t, u.Contains(New(1, 0, 0)))
	assert.True(t, u.Contains(New(3, 0, 0)))
	assert.False(t, u.Contains(New(2, 0, 0)))
}

func TestIntersection(t *testing.T) {
	a := Between(New(1, 0, 0), New(3, 0, 0))
	b := Between(New(2, 0, 0), New(4, 0, 0))
	i := a.Intersection(b)
	assert.False(t, i.Contains(New(1, 5, 0)))
	assert.True(t, i.Contains(New(2, 5, 0)))
	assert.False(t, i.Contains(New(3, 0, 0)))
}

func TestIntersectionDisjointIsEmpty(t *testing.T) {
	a := Exact(New(1, 0, 0))
	b := Exact(New(2, 0, 0))
	assert.True(t, a.Intersection(b).IsEmpty())
}

func TestIntersectionWithAny(t *testing.T) {
	a := Between(New(1, 0, 0), New(2, 0, 0))
	assert.True(t, a.Intersection(ANY).Equal(a))
	assert.True(t, ANY.Intersection(a).Equal(a))
}

func TestHigherThanAndLowerThan(t *testing.T) {
	r := HigherThan(New(1, 0, 0))
	assert.False(t, r.Contains(New(1, 0, 0)))
	assert.True(t, r.Contains(New(1, 0, 1)))

	r2 := StrictlyLowerThan(New(1, 0, 0))
	assert.True(t, r2.Contains(New(0, 9, 9)))
	assert.False(t, r2.Contains(New(1, 0, 0)))
}

func TestStringForm(t *testing.T) {
	assert.Equal(t, "ANY", ANY.String())
	assert.Equal(t, "NONE", NONE.String())
	assert.Contains(t, Between(New(1, 0, 0), New(2, 0, 0)).String(), "1.0.0")
}
