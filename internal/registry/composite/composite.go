// Package composite implements registry.Registry by combining the public
// JSON index (served as flat files, fetched with plain HTTP), which supplies
// all version metadata, with the private HTTP backend's signed artifact
// URLs.
// This is the implementation the CLI wires up; tests use
// internal/registry/memory instead.
package composite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/plow-dev/plow/internal/client"
	"github.com/plow-dev/plow/internal/constraint"
	"github.com/plow-dev/plow/internal/index"
	"github.com/plow-dev/plow/internal/registry"
	"github.com/plow-dev/plow/internal/semver"
	"golang.org/x/sync/errgroup"
)

// indexFetcher fetches the raw JSON index document for one package. The
// public index lives on a CDN reachable without authentication; it is
// modeled separately from Client, which only speaks to the authenticated
// private backend.
type indexFetcher interface {
	FetchPackageIndex(ctx context.Context, namespace, name string) ([]byte, error)
}

// Registry is the composite public-index + private-HTTP registry.Registry
// implementation.
type Registry struct {
	Client       *client.Client
	IndexFetcher indexFetcher
	Logger       hclog.Logger

	// SignedURLBackoff configures the retry policy used while polling the
	// private backend for a signed artifact download URL.
	SignedURLBackoff backoff.BackOff
}

// New returns a composite Registry. If logger is nil, a discard logger is
// used.
func New(c *client.Client, fetcher indexFetcher, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{
		Client:       c,
		IndexFetcher: fetcher,
		Logger:       logger,
		SignedURLBackoff: backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(),
			5,
		),
	}
}

func splitFullName(fullName string) (namespace, name string, err error) {
	trimmed := strings.TrimPrefix(fullName, "@")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed package full name %q", fullName)
	}
	return parts[0], parts[1], nil
}

// AllAvailableVersions implements registry.Registry, fetching the public
// index document for name and decoding every version entry. Dependency
// requirement literals are parsed eagerly via internal/constraint, in
// parallel, since a package can list dozens of versions each with several
// dependencies.
func (r *Registry) AllAvailableVersions(ctx context.Context, name string) ([]registry.PackageVersionWithMeta, error) {
	namespace, short, err := splitFullName(name)
	if err != nil {
		return nil, err
	}

	raw, err := r.IndexFetcher.FetchPackageIndex(ctx, namespace, short)
	if err != nil {
		return nil, fmt.Errorf("fetching index for %s: %w", name, err)
	}

	entries, err := index.DecodeJSONIndex(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decoding index for %s: %w", name, err)
	}

	results := make([]registry.PackageVersionWithMeta, len(entries))
	var group errgroup.Group
	for i, entry := range entries {
		i, entry := i, entry
		group.Go(func() error {
			meta, err := decodeEntry(entry)
			if err != nil {
				return fmt.Errorf("decoding entry %s@%s: %w", entry.Name, entry.Version, err)
			}
			results[i] = meta
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func decodeEntry(entry index.IndexedPackageVersion) (registry.PackageVersionWithMeta, error) {
	v, err := entry.ParsedVersion()
	if err != nil {
		return registry.PackageVersionWithMeta{}, err
	}

	deps := make([]registry.Dependency, len(entry.Deps))
	for i, d := range entry.Deps {
		rng, _, err := constraint.ParseRequirement(d.Requirement)
		if err != nil {
			return registry.PackageVersionWithMeta{}, fmt.Errorf("parsing requirement %q for %s: %w", d.Requirement, d.FullName, err)
		}
		deps[i] = registry.Dependency{FullName: d.FullName, Requirement: d.Requirement, Range: rng}
	}

	return registry.PackageVersionWithMeta{
		Name:         entry.Name,
		Version:      v,
		OntologyIRI:  entry.OntologyIRI,
		Dependencies: deps,
		Cksum:        entry.Cksum,
	}, nil
}

// GetVersionMetadata implements registry.Registry by filtering
// AllAvailableVersions; the public index has one document per package and
// no narrower single-version lookup.
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

// signedURLEndpoint is the private backend path that returns a one-time
// download URL for an artifact.
const signedURLEndpoint = "/v1/artifacts/signed-url"

// RetrieveArtifact implements registry.Registry: it polls the private
// backend for a signed download URL (the backend may still be staging the
// artifact just after publish, hence the backoff) and then fetches the
// Turtle bytes from that URL.
func (r *Registry) RetrieveArtifact(ctx context.Context, name string, version semver.Version) ([]byte, error) {
	var signedURL string
	operation := func() error {
		params := url.Values{}
		params.Set("name", name)
		params.Set("version", version.String())
		raw, err := r.Client.Get(ctx, signedURLEndpoint, params)
		if err != nil {
			return err
		}
		signedURL = strings.TrimSpace(string(raw))
		if signedURL == "" {
			return fmt.Errorf("empty signed url for %s %s", name, version)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(r.SignedURLBackoff, ctx)); err != nil {
		var rateLimited *client.RetryAfterError
		if !errors.As(err, &rateLimited) {
			return nil, fmt.Errorf("retrieving signed url for %s %s: %w", name, version, err)
		}

		r.Logger.Debug("backend asked for an explicit retry delay", "name", name, "wait", rateLimited.Wait.String())
		if err := backoff.Retry(operation, backoff.WithContext(retryAfter(rateLimited.Wait), ctx)); err != nil {
			return nil, fmt.Errorf("retrieving signed url for %s %s: %w", name, version, err)
		}
	}

	r.Logger.Debug("fetching artifact", "name", name, "version", version.String())
	return r.Client.Get(ctx, signedURL, nil)
}

// retryAfter builds a backoff that waits exactly d between attempts, used
// when the backend's 429 response names an explicit delay instead of the
// SignedURLBackoff's exponential schedule.
func retryAfter(d time.Duration) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(d), 5)
}
