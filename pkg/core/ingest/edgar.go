// Package ingest fetches XBRL documents from SEC EDGAR (or any HTTP server)
// and from the local filesystem, and parses them into xbrl trees.
// Fair-access guidance: https://www.sec.gov/os/webmaster-faq#developers
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	apperrors "tidyxbrl/pkg/common/errors"
)

const (
	// SEC rejects anonymous clients; requests must identify the caller.
	DefaultUserAgent = "tidyxbrl/1.0 (contact@example.com)"

	DefaultTimeout = 15 * time.Second

	// SEC allows at most 10 requests per second per client.
	DefaultRateLimit = 10.0

	acceptHeader = "application/xml,application/xhtml+xml,text/xml;q=0.9,text/html;q=0.8,*/*;q=0.5"
)

// Source tells where a document was read from.
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// Document is the raw content of a fetched document.
type Document struct {
	Location    string
	Source      string
	ContentType string
	Body        []byte
}

// =============================================================================
// CLIENT
// =============================================================================

// Client fetches documents over HTTP with a bounded timeout and a shared rate
// limit, falling back to the local filesystem.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	timeout    time.Duration

	// restrictFiles confines local reads to fileRoot; an empty fileRoot
	// then means no local reads at all.
	restrictFiles bool
	fileRoot      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each HTTP fetch.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFileRoot confines local reads to files under dir. Paths that leave dir,
// directly or through symlinks, are rejected with errors.ErrInvalidInput. An
// empty dir disables local reads, leaving HTTP(S) URLs only.
func WithFileRoot(dir string) ClientOption {
	return func(c *Client) {
		c.restrictFiles = true
		c.fileRoot = ""
		if dir != "" {
			if abs, err := filepath.Abs(dir); err == nil {
				c.fileRoot = abs
			} else {
				c.fileRoot = filepath.Clean(dir)
			}
		}
	}
}

// NewClient creates a client with SEC-friendly defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
	}
	WithRateLimit(DefaultRateLimit)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsURL reports whether path is an absolute http(s) URL.
func IsURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch retrieves path. URLs are fetched over HTTP; when that fails the same
// string is tried as a local file before giving up. Anything else is read
// from disk directly. Failures wrap errors.ErrFetch, and timeouts also wrap
// errors.ErrTimeout.
func (c *Client) Fetch(ctx context.Context, path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", apperrors.ErrInvalidInput)
	}

	if !IsURL(path) {
		return c.readLocal(path)
	}

	doc, httpErr := c.get(ctx, path)
	if httpErr == nil {
		return doc, nil
	}
	if c.restrictFiles && c.fileRoot == "" {
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrFetch, path, httpErr)
	}
	log.Printf("[Ingest] GET %s failed: %v, trying local file", path, httpErr)

	doc, fileErr := c.readLocal(path)
	if fileErr == nil {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s: %w (local file: %v)", apperrors.ErrFetch, path, httpErr, fileErr)
}

// readLocal reads path from disk, honouring the file root when one is set.
func (c *Client) readLocal(path string) (*Document, error) {
	if !c.restrictFiles {
		doc, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFetch, err)
		}
		return doc, nil
	}
	if c.fileRoot == "" {
		return nil, fmt.Errorf("%w: local files are disabled, want an http(s) URL", apperrors.ErrInvalidInput)
	}

	name := filepath.Clean(path)
	if filepath.IsAbs(name) {
		rel, err := filepath.Rel(c.fileRoot, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is outside the data directory", apperrors.ErrInvalidInput, path)
		}
		name = rel
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %s is outside the data directory", apperrors.ErrInvalidInput, path)
	}

	root, err := os.OpenRoot(c.fileRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFetch, err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		// os.Root refuses symlinks that escape the root.
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFetch, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFetch, err)
	}
	return &Document{
		Location: path,
		Source:   SourceFile,
		Body:     body,
	}, nil
}

func (c *Client) get(ctx context.Context, target string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(fmt.Errorf("rate limit: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read response: %w", err))
	}
	log.Printf("[Ingest] GET %s: %d bytes in %s", target, len(body), time.Since(start).Round(time.Millisecond))

	return &Document{
		Location:    target,
		Source:      SourceHTTP,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// classify marks deadline failures with errors.ErrTimeout.
func classify(err error) error {
	var ue *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ue) && ue.Timeout()) {
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return err
}

func readFile(path string) (*Document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Document{
		Location: path,
		Source:   SourceFile,
		Body:     body,
	}, nil
}
