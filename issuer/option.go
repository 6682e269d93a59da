package issuer

import (
	"errors"
	"net/http"
	"time"
)

// Option configures the Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used to talk to the upstream
// authority.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithRequestTimeout sets the hard deadline for a whole Token call,
// including the retry. Default 10 seconds.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return errors.New("request timeout must be positive")
		}
		c.requestTimeout = timeout
		return nil
	}
}

// WithRetryBackoff sets the pause before the single retry of a transient
// failure. Default 250ms.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *Client) error {
		if backoff < 0 {
			return errors.New("retry backoff cannot be negative")
		}
		c.retryBackoff = backoff
		return nil
	}
}

// tokenConfig holds per-call settings for Token.
type tokenConfig struct {
	template string
}

// TokenOption configures a single Token call.
type TokenOption func(*tokenConfig)

// WithTemplate mints the token from the named upstream template instead of
// the default session token.
func WithTemplate(name string) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.template = name
	}
}
