// Package constraint translates the requirement literals attached to
// registry:dependency triples into semver.Range values (C3).
package constraint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plow-dev/plow/internal/semver"
)

// Warning classifies a non-fatal oddity found while parsing a requirement
// literal. Resolution continues; the caller decides whether to surface it.
type Warning int

const (
	// SingleWildcard marks a literal that is exactly "*".
	SingleWildcard Warning = iota
	// ContainsWildcards marks a fragment using "*" or "x" in an interior position.
	ContainsWildcards
)

func (w Warning) String() string {
	switch w {
	case SingleWildcard:
		return "SingleWildcard"
	case ContainsWildcards:
		return "ContainsWildcards"
	default:
		return "Unknown"
	}
}

// Sentinel errors matching the taxonomy in spec §4.3.
var (
	ErrEmpty                    = errors.New("requirement literal is empty")
	ErrCanNotBeSolved           = errors.New("requirement fragments intersect to NONE")
	ErrNoExactPrefixOnPair      = errors.New("exact (=) operator is not allowed in a version pair")
	ErrOnlySingleOrPair         = errors.New("requirement must consist of one or two fragments")
	ErrBareVersionNotAllowed    = errors.New("bare version literal is only permitted as a single \"*\" or with a wildcard position")
	ErrUnrecognizedOperator     = errors.New("unrecognized comparator operator")
)

type operator int

const (
	opEq operator = iota
	opGt
	opGe
	opLt
	opLe
	opCaret
	opTilde
	opWildcard
)

// ParseRequirement parses a full requirement literal (one or two
// comma/space-separated fragments) into a Range, per the algorithm and
// fragment-to-range mapping table in spec §4.3.
func ParseRequirement(literal string) (semver.Range, []Warning, error) {
	trimmed := strings.TrimSpace(literal)
	if trimmed == "" {
		return semver.NONE, nil, ErrEmpty
	}

	if trimmed == "*" {
		return semver.ANY, []Warning{SingleWildcard}, nil
	}

	fragments := splitFragments(trimmed)
	if len(fragments) > 2 {
		return semver.NONE, nil, ErrOnlySingleOrPair
	}

	var warnings []Warning
	ranges := make([]semver.Range, 0, len(fragments))
	isExact := make([]bool, 0, len(fragments))

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if isBareDigitStart(fragment) && !containsInteriorWildcard(fragment) {
			return semver.NONE, nil, fmt.Errorf("%w: %q", ErrBareVersionNotAllowed, fragment)
		}

		op, rest := splitOperator(fragment)
		if containsInteriorWildcard(rest) {
			warnings = append(warnings, ContainsWildcards)
		}

		r, err := fragmentRange(op, rest)
		if err != nil {
			return semver.NONE, warnings, err
		}
		ranges = append(ranges, r)
		isExact = append(isExact, op == opEq)
	}

	switch len(ranges) {
	case 1:
		return ranges[0], warnings, nil
	case 2:
		if isExact[0] || isExact[1] {
			return semver.NONE, warnings, ErrNoExactPrefixOnPair
		}
		result := ranges[0].Intersection(ranges[1])
		if result.IsEmpty() {
			return semver.NONE, warnings, ErrCanNotBeSolved
		}
		return result, warnings, nil
	default:
		return semver.NONE, warnings, ErrOnlySingleOrPair
	}
}

// splitFragments splits a requirement literal on comma (space-tolerant) or,
// absent a comma, on a single interior space.
func splitFragments(literal string) []string {
	if strings.Contains(literal, ",") {
		parts := strings.Split(literal, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	fields := strings.Fields(literal)
	if len(fields) > 1 {
		return fields
	}
	return []string{literal}
}

func isBareDigitStart(fragment string) bool {
	return len(fragment) > 0 && fragment[0] >= '0' && fragment[0] <= '9'
}

func containsInteriorWildcard(versionPart string) bool {
	return strings.ContainsAny(versionPart, "*x")
}

func splitOperator(fragment string) (operator, string) {
	switch {
	case strings.HasPrefix(fragment, ">="):
		return opGe, strings.TrimSpace(fragment[2:])
	case strings.HasPrefix(fragment, "<="):
		return opLe, strings.TrimSpace(fragment[2:])
	case strings.HasPrefix(fragment, ">"):
		return opGt, strings.TrimSpace(fragment[1:])
	case strings.HasPrefix(fragment, "<"):
		return opLt, strings.TrimSpace(fragment[1:])
	case strings.HasPrefix(fragment, "="):
		return opEq, strings.TrimSpace(fragment[1:])
	case strings.HasPrefix(fragment, "^"):
		return opCaret, strings.TrimSpace(fragment[1:])
	case strings.HasPrefix(fragment, "~"):
		return opTilde, strings.TrimSpace(fragment[1:])
	default:
		return opWildcard, fragment
	}
}

// fragmentRange implements the fragment-to-range mapping table in spec
// §4.3, including the caret exceptions for 0.x versions.
func fragmentRange(op operator, versionPart string) (semver.Range, error) {
	cleaned := versionPart
	if i := strings.IndexAny(cleaned, "*x"); i != -1 {
		// A wildcard position and everything after it are dropped, so "1.x"
		// parses as the major-only "1" and "1.2.*" as "1.2".
		cleaned = strings.TrimSuffix(cleaned[:i], ".")
	}
	v, completeness, err := semver.Parse(cleaned)
	if err != nil {
		return semver.NONE, err
	}

	switch op {
	case opEq:
		switch completeness {
		case semver.Complete:
			return semver.Exact(v), nil
		case semver.OnlyMinorAndMajor:
			return semver.Between(v, v.BumpMinor()), nil
		default:
			return semver.Between(v, v.BumpMajor()), nil
		}
	case opGt:
		switch completeness {
		case semver.Complete:
			return semver.HigherThanOrEqual(v.BumpPatch()), nil
		case semver.OnlyMinorAndMajor:
			return semver.HigherThanOrEqual(v.BumpMinor()), nil
		default:
			return semver.HigherThanOrEqual(v.BumpMajor()), nil
		}
	case opGe:
		return semver.HigherThanOrEqual(v), nil
	case opLt:
		return semver.StrictlyLowerThan(v), nil
	case opLe:
		switch completeness {
		case semver.Complete:
			return semver.StrictlyLowerThan(v.BumpPatch()), nil
		case semver.OnlyMinorAndMajor:
			return semver.StrictlyLowerThan(v.BumpMinor()), nil
		default:
			return semver.StrictlyLowerThan(v.BumpMajor()), nil
		}
	case opCaret:
		if completeness == semver.OnlyMinorAndMajor && v.IsMajorZero() && v.IsMinorZero() {
			return semver.Between(v, v.BumpMinor()), nil
		}
		if completeness != semver.Complete {
			return semver.Between(v, v.BumpMajor()), nil
		}
		switch {
		case v.IsMajorZero() && v.IsMinorZero():
			return semver.Exact(v), nil
		case v.IsMajorZero():
			return semver.Between(v, v.BumpMinor()), nil
		default:
			return semver.Between(v, v.BumpMajor()), nil
		}
	case opTilde:
		switch completeness {
		case semver.OnlyMajor:
			return semver.Between(v, v.BumpMajor()), nil
		default:
			return semver.Between(v, v.BumpMinor()), nil
		}
	case opWildcard:
		switch completeness {
		case semver.OnlyMinorAndMajor:
			return semver.Between(v, v.BumpMinor()), nil
		default:
			return semver.Between(v, v.BumpMajor()), nil
		}
	default:
		return semver.NONE, fmt.Errorf("%w", ErrUnrecognizedOperator)
	}
}
