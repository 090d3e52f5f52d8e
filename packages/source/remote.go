package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/tidwall/gjson"
)

const (
	// apiKeyHeader carries the Postman API credential
	apiKeyHeader = "X-Api-Key"

	// maxResponseBytes caps how much of an API response is read
	maxResponseBytes = 64 << 20
)

// Remote fetches the collection and environment from the Postman API
type Remote struct {
	src        config.RemoteSource
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// RemoteOption is a functional option for Remote
type RemoteOption func(*Remote)

// WithHTTPClient replaces the HTTP client used for API calls
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.httpClient = c
	}
}

// WithTimeout bounds each API request
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.timeout = d
	}
}

// WithRemoteLogger sets the logger
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = l
	}
}

// NewRemote creates a Postman API resolver
func NewRemote(src config.RemoteSource, opts ...RemoteOption) *Remote {
	if src.BaseURL == "" {
		src.BaseURL = config.DefaultPostmanBaseURL
	}
	r := &Remote{
		src:        src,
		httpClient: &http.Client{},
		timeout:    config.DefaultRemoteTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode implements Resolver
func (r *Remote) Mode() string { return config.ModeRemote }

// Resolve fetches the collection, then the environment. The first failure
// aborts the resolution.
func (r *Remote) Resolve(ctx context.Context) (*Pair, error) {
	collection, err := r.Fetch(ctx, KindCollection, r.src.CollectionUID)
	if err != nil {
		return nil, err
	}
	environment, err := r.Fetch(ctx, KindEnvironment, r.src.EnvironmentUID)
	if err != nil {
		return nil, err
	}
	return &Pair{Collection: collection, Environment: environment}, nil
}

// Fetch retrieves one definition and returns the object stored under the
// kind's key in the response body.
func (r *Remote) Fetch(ctx context.Context, kind Kind, uid string) ([]byte, error) {
	fail := func(status int, err error) error {
		r.logger.Error("postman API fetch failed", "kind", kind, "uid", uid, "status", status, "error", err)
		return &ConfigFetchError{Kind: kind, UID: uid, StatusCode: status, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch strings.TrimSpace(uid) {
	case "", ".", "..":
		return nil, fail(0, fmt.Errorf("invalid %s uid %q", kind, uid))
	}

	// The uid is a single path segment; reserved characters must not
	// change the request target.
	target := fmt.Sprintf("%s/%ss/%s", strings.TrimRight(r.src.BaseURL, "/"), kind, url.PathEscape(uid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set(apiKeyHeader, r.src.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fail(resp.StatusCode, fmt.Errorf("%w: %s", ErrUnauthorized, apiErrorMessage(body, resp.Status)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", apiErrorMessage(body, resp.Status)))
	}

	if !gjson.ValidBytes(body) {
		return nil, fail(resp.StatusCode, errors.New("response is not valid JSON"))
	}
	payload := gjson.GetBytes(body, string(kind))
	if !payload.IsObject() {
		return nil, fail(resp.StatusCode, fmt.Errorf("response has no %q object", kind))
	}

	r.logger.Debug("fetched definition", "kind", kind, "uid", uid, "duration", time.Since(start))
	return []byte(payload.Raw), nil
}

// apiErrorMessage extracts the Postman error message from a response body,
// falling back to the HTTP status line.
func apiErrorMessage(body []byte, status string) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return strings.TrimSpace(msg.String())
	}
	return status
}
