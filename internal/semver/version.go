// Package semver implements the closed version and range algebra plow's
// resolver runs on: complete (major, minor, patch) versions, bump
// operations, and the half-open interval Range built on top of them (C1/C2).
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is wrapped with details and returned whenever Parse
// cannot make sense of a version literal.
var ErrInvalidVersion = errors.New("invalid version")

// Completeness records which positions a parsed version fragment actually
// named, so the constraint parser can pick the right row of the comparator
// table (§4.3) even though Version always stores a zero-filled triple.
type Completeness int

const (
	// Complete means all three of major.minor.patch were given.
	Complete Completeness = iota
	// OnlyMinorAndMajor means the fragment was "X.Y".
	OnlyMinorAndMajor
	// OnlyMajor means the fragment was a bare "X".
	OnlyMajor
)

// Version is an ordered (major, minor, patch) triple. Pre-release and build
// metadata are not part of the model; the manifest extractor and constraint
// parser reject anything carrying them.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// Zero is the lowest possible version, 0.0.0.
var Zero = Version{}

// New constructs a Version from its three components.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// IsMajorZero reports whether the major component is zero.
func (v Version) IsMajorZero() bool { return v.Major == 0 }

// IsMinorZero reports whether the minor component is zero.
func (v Version) IsMinorZero() bool { return v.Minor == 0 }

// IsPatchZero reports whether the patch component is zero.
func (v Version) IsPatchZero() bool { return v.Patch == 0 }

// BumpMajor returns the smallest version strictly greater than v with a
// higher major component; minor and patch reset to zero.
func (v Version) BumpMajor() Version {
	return Version{Major: v.Major + 1}
}

// BumpMinor returns the smallest version strictly greater than v with the
// same major but a higher minor component; patch resets to zero.
func (v Version) BumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// BumpPatch returns the smallest version strictly greater than v with the
// same major and minor but a higher patch component.
func (v Version) BumpPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, ordering lexicographically on (major, minor, patch).
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmpUint64(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpUint64(v.Minor, other.Minor)
	}
	return cmpUint64(v.Patch, other.Patch)
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other name the same version.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// String renders the version in "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse reads a bare version literal in "X", "X.Y", or "X.Y.Z" form, zero
// filling any missing positions, and reports which positions were present.
func Parse(literal string) (Version, Completeness, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return Version{}, Complete, fmt.Errorf("%w: empty version literal", ErrInvalidVersion)
	}

	parts := strings.Split(literal, ".")
	if len(parts) > 3 {
		return Version{}, Complete, fmt.Errorf("%w: %q has too many dot-separated components", ErrInvalidVersion, literal)
	}

	nums := make([]uint64, 3)
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, Complete, fmt.Errorf("%w: %q is not a non-negative integer in %q", ErrInvalidVersion, part, literal)
		}
		nums[i] = n
	}

	var completeness Completeness
	switch len(parts) {
	case 1:
		completeness = OnlyMajor
	case 2:
		completeness = OnlyMinorAndMajor
	case 3:
		completeness = Complete
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, completeness, nil
}
