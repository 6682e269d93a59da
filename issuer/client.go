package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token minting failures. ErrSessionRevoked and ErrTemplateNotFound are
// definitive; ErrUpstreamUnavailable means "no token right now" and callers
// are expected to degrade rather than fail the whole request.
var (
	// ErrSessionRevoked is returned when the upstream authority no longer
	// recognizes the session.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrTemplateNotFound is returned when the named token template does
	// not exist upstream.
	ErrTemplateNotFound = errors.New("token template not found")

	// ErrUpstreamUnavailable is returned when the upstream authority could
	// not be reached or kept failing after the bounded retry.
	ErrUpstreamUnavailable = errors.New("upstream identity authority unavailable")
)

// transient failures get exactly one retry; signature and state failures
// are definitive and never retried.
const maxRetries = 1

// Client mints session tokens from the upstream identity authority. This is
// the one component in the module that performs network I/O on the request
// path, so every call is bounded by a hard timeout.
//
// A Client is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	secretKey      string
	httpClient     *http.Client
	requestTimeout time.Duration
	retryBackoff   time.Duration
}

// NewClient builds a Client for the authority at baseURL, authenticating
// with the given secret key.
func NewClient(baseURL, secretKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required but was empty")
	}
	if secretKey == "" {
		return nil, errors.New("secret key is required but was empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse base URL: %w", err)
	}

	c := &Client{
		baseURL:        parsed,
		secretKey:      secretKey,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		requestTimeout: 10 * time.Second,
		retryBackoff:   250 * time.Millisecond,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// tokenResponse is the upstream authority's success payload.
type tokenResponse struct {
	JWT string `json:"jwt"`
}

// errorResponse is the upstream authority's failure payload.
type errorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Token requests a signed token for the given session from the upstream
// authority. Use WithTemplate to mint a templated token. On transient
// upstream failure the request is retried once with backoff; once the hard
// timeout elapses the call fails with ErrUpstreamUnavailable.
func (c *Client) Token(ctx context.Context, sessionID string, opts ...TokenOption) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required but was empty")
	}

	cfg := tokenConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "v1/sessions", url.PathEscape(sessionID), "tokens")
	if cfg.template != "" {
		endpoint.Path = path.Join(endpoint.Path, url.PathEscape(cfg.template))
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
			case <-time.After(c.retryBackoff):
			}
		}

		token, retryable, err := c.mint(ctx, endpoint.String(), cfg.template)
		if err == nil {
			return token, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// mint performs a single mint attempt. The retryable flag is true only for
// transport failures and upstream 5xx responses.
func (c *Client) mint(ctx context.Context, endpoint, template string) (string, bool, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("could not build token request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.secretKey)
	request.Header.Set("X-Request-Id", uuid.NewString())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1*1024*1024))
	if err != nil {
		return "", true, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case response.StatusCode == http.StatusOK:
		var token tokenResponse
		if err := json.Unmarshal(body, &token); err != nil || token.JWT == "" {
			return "", false, fmt.Errorf("%w: malformed token response", ErrUpstreamUnavailable)
		}
		return token.JWT, false, nil

	case response.StatusCode >= http.StatusInternalServerError:
		return "", true, fmt.Errorf("%w: upstream returned status %d", ErrUpstreamUnavailable, response.StatusCode)

	default:
		return "", false, c.mapClientError(response.StatusCode, body, template)
	}
}

// mapClientError turns a 4xx response into a sentinel. The upstream error
// code wins when present; the status code is the fallback.
func (c *Client) mapClientError(status int, body []byte, template string) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)

	for _, upstreamErr := range payload.Errors {
		switch {
		case upstreamErr.Code == "template_not_found":
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, upstreamErr.Message)
		case upstreamErr.Code == "session_not_found",
			upstreamErr.Code == "session_revoked",
			strings.HasPrefix(upstreamErr.Code, "session_"):
			return fmt.Errorf("%w: %s", ErrSessionRevoked, upstreamErr.Message)
		}
	}

	switch status {
	case http.StatusNotFound:
		if template != "" {
			return fmt.Errorf("%w: %q", ErrTemplateNotFound, template)
		}
		return ErrSessionRevoked
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusGone:
		return ErrSessionRevoked
	default:
		return fmt.Errorf("upstream returned unexpected status %d", status)
	}
}
