// Package client implements the low-level HTTP client used to talk to a
// plow field registry's private backend: requesting signed artifact URLs
// and downloading artifact bytes.
package client

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// RetryAfterError is returned by Get when the backend answers 429 with an
// explicit Retry-After header, so a caller polling in a loop (e.g. for a
// signed artifact URL) can wait exactly as long as asked instead of reusing
// its own backoff schedule.
type RetryAfterError struct {
	Status string
	Wait   time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("registry returned %s, retry after %s", e.Status, e.Wait)
}

// parseRetryAfter parses the Retry-After header's delta-seconds form. The
// HTTP-date form is not produced by the field registry backend, so it is
// not handled here.
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// Client is the HTTP client for a private registry backend. The public
// index is served as flat files over plain HTTP(S) and doesn't need this
// machinery; Client backs internal/registry/composite for authenticated
// signed-URL and artifact requests.
type Client struct {
	baseURL    string
	token      string
	HTTPClient *retryablehttp.Client

	// currentFailCount must be used via the atomic package.
	currentFailCount uint64
}

// ErrTooManyFailures is returned after too many consecutive request failures,
// so a resolve that depends on many registry round trips fails fast instead
// of retrying into a dead backend package by package.
var ErrTooManyFailures = errors.New("skipping registry request, too many failures have occurred")

// maxFailCount is the number of failed requests before Client stops trying
// to reach the backend until the caller constructs a new Client.
const maxFailCount = uint64(3)

// RemoteConfig holds the authentication and endpoint details for Client.
type RemoteConfig struct {
	Token  string
	APIURL string
}

// Opts configures the behavior of Client.
type Opts struct {
	Timeout time.Duration
}

// DefaultTimeout is used when Opts.Timeout is unset.
const DefaultTimeout = 20 * time.Second

// Version is the plow client version reported in the User-Agent header;
// overridden at link time in real builds.
var Version = "dev"

// New creates a new registry Client.
func New(remoteConfig RemoteConfig, logger hclog.Logger, opts Opts) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: remoteConfig.APIURL,
		token:   remoteConfig.Token,
		HTTPClient: &retryablehttp.Client{
			HTTPClient: &http.Client{
				Timeout: timeout,
			},
			RetryWaitMin: 2 * time.Second,
			RetryWaitMax: 10 * time.Second,
			RetryMax:     2,
			Backoff:      retryablehttp.DefaultBackoff,
			Logger:       logger,
		},
	}
	c.HTTPClient.CheckRetry = c.checkRetry
	return c
}

func (c *Client) retryPolicy(resp *http.Response, err error) (bool, error) {
	if err != nil {
		var certErr x509.UnknownAuthorityError
		if errors.As(err, &certErr) {
			atomic.AddUint64(&c.currentFailCount, 1)
			return false, err
		}
		atomic.AddUint64(&c.currentFailCount, 1)
		return true, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if _, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			// Hand the response back so Get can surface a RetryAfterError.
			return false, nil
		}
		atomic.AddUint64(&c.currentFailCount, 1)
		return true, nil
	}

	if resp.StatusCode == 0 || (resp.StatusCode >= 500 && resp.StatusCode != 501) {
		atomic.AddUint64(&c.currentFailCount, 1)
		return true, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	return false, nil
}

func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		atomic.AddUint64(&c.currentFailCount, 1)
		return false, ctx.Err()
	}

	shouldRetry, policyErr := c.retryPolicy(resp, err)
	if shouldRetry {
		if okErr := c.okToRequest(); okErr != nil {
			return false, okErr
		}
	}
	return shouldRetry, policyErr
}

func (c *Client) okToRequest() error {
	if atomic.LoadUint64(&c.currentFailCount) < maxFailCount {
		return nil
	}
	return ErrTooManyFailures
}

func (c *Client) makeURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return fmt.Sprintf("%s%s", c.baseURL, endpoint)
}

func (c *Client) userAgent() string {
	return fmt.Sprintf("plow/%s %s %s/%s", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Get issues an authenticated GET against endpoint (a path under the base
// URL, or an absolute http(s) URL used as is), with query parameters
// applied, and returns the raw response body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.okToRequest(); err != nil {
		return nil, err
	}

	encoded := params.Encode()
	if encoded != "" {
		encoded = "?" + encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.makeURL(endpoint+encoded), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("response from %s is nil, something went wrong", endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
				return nil, &RetryAfterError{Status: resp.Status, Wait: wait}
			}
		}
		return nil, fmt.Errorf("registry returned %s: %s", resp.Status, string(raw))
	}
	return raw, nil
}
