// Package resolve implements the PubGrub-style dependency resolver (C7):
// given a set of direct constraints, a Registry and an optional lockfile
// bias, it selects a single version for every transitively reachable
// package.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/hashicorp/go-hclog"
	"github.com/plow-dev/plow/internal/registry"
	"github.com/plow-dev/plow/internal/semver"
	"github.com/plow-dev/plow/internal/ui"
	"github.com/pyr-sh/dag"
)

// RootName and RootVersion name the synthetic package representing the
// set of direct user constraints. They must never leak into user-facing
// text; displayName substitutes "organization" for RootName.
const (
	RootName        = "@root/root"
	rootDisplayName = "organization"
)

// RootVersion is the synthetic root's version.
var RootVersion = semver.New(0, 0, 0)

// FailureKind classifies why a resolution did not produce a Solution.
type FailureKind int

const (
	// NoSolution means the solver exhausted every candidate without
	// satisfying every constraint.
	NoSolution FailureKind = iota
	// SelfDependency means a package was found to depend on itself.
	SelfDependency
	// DependencyOnTheEmptySet means a registry entry advertised NONE as a
	// dependency's range, which can never be satisfied.
	DependencyOnTheEmptySet
	// ErrorRetrievingDependencies wraps a registry error encountered while
	// fetching metadata.
	ErrorRetrievingDependencies
	// MultipleVersionsOfSamePackage is a post-processing failure: two
	// distinct versions of the same package ended up selected.
	MultipleVersionsOfSamePackage
	// Cancelled means the caller's should-cancel hook asked the resolver
	// to unwind.
	Cancelled
)

func (k FailureKind) String() string {
	switch k {
	case NoSolution:
		return "NoSolution"
	case SelfDependency:
		return "SelfDependency"
	case DependencyOnTheEmptySet:
		return "DependencyOnTheEmptySet"
	case ErrorRetrievingDependencies:
		return "ErrorRetrievingDependencies"
	case MultipleVersionsOfSamePackage:
		return "MultipleVersionsOfSamePackage"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the typed error the resolver returns on failure.
type Error struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Render formats the error the way a CLI consuming this package would print
// it to a terminal: the error prefix, the message in bold, then the wrapped
// error if there is one. The failure kind is not included.
func (e *Error) Render() string {
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", ui.ERROR_PREFIX, ui.Bold(e.Message), e.Err)
	}
	return fmt.Sprintf("%s%s", ui.ERROR_PREFIX, ui.Bold(e.Message))
}

// Solution is the flat set of (name, version) selections covering the
// transitive closure of the root's dependencies, excluding the root
// itself.
type Solution map[string]semver.Version

// ShouldCancel is polled between solver steps. Returning true unwinds the
// resolution with a Cancelled error and touches no on-disk state.
type ShouldCancel func() bool

// LockHints supplies the resolver's lockfile bias: for each package name
// previously locked, the exact version it was pinned to.
type LockHints map[string]semver.Version

// contribution records one edge that narrowed a package's accumulated
// range, kept only for conflict reporting.
type contribution struct {
	from        string
	requirement string
	rng         semver.Range
}

// Solver runs one resolution against a Registry, reusing its
// available-versions cache across the run. A Solver must not be reused
// across resolutions: the cache can go stale once the registry is
// refreshed between calls (per the design notes).
type Solver struct {
	reg    registry.Registry
	lock   LockHints
	logger hclog.Logger

	shouldCancel ShouldCancel

	// availableCache memoizes name -> versions sorted descending.
	availableCache map[string][]registry.PackageVersionWithMeta

	graph dag.AcyclicGraph
}

// Opts configures a Solver.
type Opts struct {
	Lock         LockHints
	Logger       hclog.Logger
	ShouldCancel ShouldCancel
}

// NewSolver constructs a Solver bound to reg for a single resolution.
func NewSolver(reg registry.Registry, opts Opts) *Solver {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cancel := opts.ShouldCancel
	if cancel == nil {
		cancel = func() bool { return false }
	}
	lock := opts.Lock
	if lock == nil {
		lock = LockHints{}
	}
	return &Solver{
		reg:            reg,
		lock:           lock,
		logger:         logger,
		shouldCancel:   cancel,
		availableCache: map[string][]registry.PackageVersionWithMeta{},
	}
}

// Resolve runs the solver against rootDeps, the direct dependencies of the
// synthetic @root/root package.
func (s *Solver) Resolve(ctx context.Context, rootDeps []registry.Dependency) (Solution, error) {
	ranges := map[string]semver.Range{}
	contributions := map[string][]contribution{}
	pending := mapset.NewThreadUnsafeSet()

	sortedRootDeps := append([]registry.Dependency{}, rootDeps...)
	sort.Slice(sortedRootDeps, func(i, j int) bool { return sortedRootDeps[i].FullName < sortedRootDeps[j].FullName })

	for _, dep := range sortedRootDeps {
		if dep.FullName == RootName {
			return nil, &Error{Kind: SelfDependency, Message: "organization depends on itself"}
		}
		if err := s.narrow(ranges, contributions, pending, RootName, dep); err != nil {
			return nil, err
		}
	}

	decisions := map[string]semver.Version{}
	solution, err := s.step(ctx, decisions, ranges, contributions, pending)
	if err != nil {
		return nil, err
	}

	delete(solution, RootName)
	return solution, nil
}

// narrow intersects dep's range into the accumulated range for dep.FullName,
// recording the contribution and failing fast if the registry advertised
// an impossible (NONE) range outright.
func (s *Solver) narrow(ranges map[string]semver.Range, contributions map[string][]contribution, pending mapset.Set, from string, dep registry.Dependency) error {
	if dep.Range.IsEmpty() {
		return &Error{
			Kind:    DependencyOnTheEmptySet,
			Message: fmt.Sprintf("%s's dependency on %s resolves to an empty range (malformed index entry)", displayName(from), dep.FullName),
		}
	}

	current, ok := ranges[dep.FullName]
	if !ok {
		current = semver.ANY
	}
	narrowed := current.Intersection(dep.Range)
	ranges[dep.FullName] = narrowed
	contributions[dep.FullName] = append(contributions[dep.FullName], contribution{from: from, requirement: dep.Requirement, rng: dep.Range})
	pending.Add(dep.FullName)
	return nil
}

// step is the recursive core of the backtracking search. It operates on
// copies of decisions/ranges/contributions/pending so that backtracking
// never has to manually undo partial mutations.
func (s *Solver) step(ctx context.Context, decisions map[string]semver.Version, ranges map[string]semver.Range, contributions map[string][]contribution, pending mapset.Set) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: Cancelled, Message: "context cancelled", Err: err}
	}
	if s.shouldCancel() {
		return nil, &Error{Kind: Cancelled, Message: "cancelled by caller"}
	}

	name, ok := s.choosePendingPackage(pending, decisions, ranges)
	if !ok {
		out := Solution{}
		for n, v := range decisions {
			out[n] = v
		}
		return out, nil
	}

	pending.Remove(name)
	if _, already := decisions[name]; already {
		return s.step(ctx, decisions, ranges, contributions, pending)
	}

	candidates, err := s.candidatesFor(ctx, name, ranges[name])
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, s.noSolutionError(name, ranges[name], contributions[name])
	}

	var lastErr error
	for _, candidate := range candidates {
		nextDecisions := cloneVersions(decisions)
		nextDecisions[name] = candidate.Version

		nextRanges := cloneRanges(ranges)
		nextContributions := cloneContributions(contributions)
		nextPending := clonePending(pending)

		meta, err := s.metadataFor(ctx, name, candidate.Version)
		if err != nil {
			return nil, &Error{Kind: ErrorRetrievingDependencies, Message: fmt.Sprintf("fetching dependencies of %s %s", displayName(name), candidate.Version), Err: err}
		}

		conflict := false
		deps := append([]registry.Dependency{}, meta.Dependencies...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].FullName < deps[j].FullName })
		for _, dep := range deps {
			if dep.FullName == name {
				return nil, &Error{Kind: SelfDependency, Message: fmt.Sprintf("%s depends on itself", displayName(name))}
			}
			s.graph.Connect(dag.BasicEdge(name, dep.FullName))

			if err := s.narrow(nextRanges, nextContributions, nextPending, name, dep); err != nil {
				return nil, err
			}
			if decided, already := nextDecisions[dep.FullName]; already {
				if !nextRanges[dep.FullName].Contains(decided) {
					conflict = true
					break
				}
				nextPending.Remove(dep.FullName)
			}
		}

		if conflict {
			lastErr = s.noSolutionError(name, ranges[name], contributions[name])
			continue
		}

		solution, err := s.step(ctx, nextDecisions, nextRanges, nextContributions, nextPending)
		if err == nil {
			return solution, nil
		}
		var resolveErr *Error
		if errors.As(err, &resolveErr) && (resolveErr.Kind == SelfDependency || resolveErr.Kind == DependencyOnTheEmptySet || resolveErr.Kind == ErrorRetrievingDependencies || resolveErr.Kind == Cancelled) {
			return nil, err
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, s.noSolutionError(name, ranges[name], contributions[name])
}

// choosePendingPackage implements the fail-fast heuristic of §4.7: rank
// each pending package by the number of versions satisfying its current
// constraint range intersected with any locked hint, picking the fewest.
// Ties break on name for determinism.
func (s *Solver) choosePendingPackage(pending mapset.Set, decisions map[string]semver.Version, ranges map[string]semver.Range) (string, bool) {
	names := make([]string, 0, pending.Cardinality())
	for _, raw := range pending.ToSlice() {
		name := raw.(string)
		if _, already := decisions[name]; already {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)

	best := names[0]
	bestCount := s.validVersionCount(best, ranges[best])
	for _, name := range names[1:] {
		count := s.validVersionCount(name, ranges[name])
		if count < bestCount {
			best, bestCount = name, count
		}
	}
	return best, true
}

func (s *Solver) validVersionCount(name string, rng semver.Range) int {
	versions := s.availableCache[name]
	effective := rng
	if locked, ok := s.lock[name]; ok {
		lockedRange := semver.Exact(locked)
		if !rng.Intersection(lockedRange).IsEmpty() {
			effective = lockedRange
		}
	}
	count := 0
	for _, v := range versions {
		if effective.Contains(v.Version) {
			count++
		}
	}
	return count
}

// candidatesFor returns the versions of name satisfying rng, descending,
// honoring the lockfile bias: if the locked version satisfies rng, it is
// moved to the front and the remaining versions follow, still descending.
func (s *Solver) candidatesFor(ctx context.Context, name string, rng semver.Range) ([]registry.PackageVersionWithMeta, error) {
	available, err := s.allAvailable(ctx, name)
	if err != nil {
		return nil, &Error{Kind: ErrorRetrievingDependencies, Message: fmt.Sprintf("listing versions of %s", displayName(name)), Err: err}
	}

	var out []registry.PackageVersionWithMeta
	for _, v := range available {
		if rng.Contains(v.Version) {
			out = append(out, v)
		}
	}

	if locked, ok := s.lock[name]; ok {
		for i, v := range out {
			if v.Version.Equal(locked) && i != 0 {
				copy(out[1:i+1], out[:i])
				out[0] = v
				break
			}
		}
	}
	return out, nil
}

func (s *Solver) allAvailable(ctx context.Context, name string) ([]registry.PackageVersionWithMeta, error) {
	if name == RootName {
		return nil, fmt.Errorf("the root package has no registry entry")
	}
	if cached, ok := s.availableCache[name]; ok {
		return cached, nil
	}
	versions, err := s.reg.AllAvailableVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	sort.Slice(versions, func(i, j int) bool { return versions[j].Version.Less(versions[i].Version) })
	s.availableCache[name] = versions
	return versions, nil
}

func (s *Solver) metadataFor(ctx context.Context, name string, version semver.Version) (registry.PackageVersionWithMeta, error) {
	for _, v := range s.availableCache[name] {
		if v.Version.Equal(version) {
			return v, nil
		}
	}
	return s.reg.GetVersionMetadata(ctx, name, version)
}

func (s *Solver) noSolutionError(name string, rng semver.Range, contributions []contribution) *Error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no version of %s satisfies every constraint (accumulated range %s)", displayName(name), rng)
	if len(contributions) > 0 {
		sb.WriteString("; required by:")
		for _, c := range contributions {
			fmt.Fprintf(&sb, " %s requires %q", displayName(c.from), c.requirement)
		}
	}
	return &Error{Kind: NoSolution, Message: sb.String()}
}

// displayName substitutes the user-facing name for the synthetic root,
// per the design note that @root/root must never appear in error text.
func displayName(name string) string {
	if name == RootName {
		return rootDisplayName
	}
	return name
}

func cloneVersions(m map[string]semver.Version) map[string]semver.Version {
	out := make(map[string]semver.Version, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRanges(m map[string]semver.Range) map[string]semver.Range {
	out := make(map[string]semver.Range, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePending(s mapset.Set) mapset.Set {
	return s.Clone()
}

func cloneContributions(m map[string][]contribution) map[string][]contribution {
	out := make(map[string][]contribution, len(m))
	for k, v := range m {
		out[k] = append([]contribution{}, v...)
	}
	return out
}

// PostProcess validates that a raw decision map names at most one version
// per package name; callers that build Solution outside Resolve (e.g.
// tests constructing fixtures) can reuse this check.
func PostProcess(decisions map[string][]semver.Version) (Solution, error) {
	out := Solution{}
	for name, versions := range decisions {
		if len(versions) == 0 {
			continue
		}
		first := versions[0]
		for _, v := range versions[1:] {
			if !v.Equal(first) {
				return nil, &Error{
					Kind:    MultipleVersionsOfSamePackage,
					Message: fmt.Sprintf("%s resolved to both %s and %s", displayName(name), first, v),
				}
			}
		}
		out[name] = first
	}
	return out, nil
}
