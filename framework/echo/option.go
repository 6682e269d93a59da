package echoguard

import (
	sessionguard "github.com/sessionkit/go-session-guard"
)

// middlewareConfig holds all configuration for the middleware
type middlewareConfig struct {
	sessionKey   string
	checkOptions []sessionguard.CheckOption
}

// Option defines a functional option for configuring the middleware
type Option func(*middlewareConfig)

// WithSessionKey overrides the Echo context key the session is stored under.
func WithSessionKey(key string) Option {
	return func(config *middlewareConfig) {
		if key != "" {
			config.sessionKey = key
		}
	}
}

// WithCheckOptions forwards per-route check options to the guard, such as
// sessionguard.WithQuery.
func WithCheckOptions(opts ...sessionguard.CheckOption) Option {
	return func(config *middlewareConfig) {
		config.checkOptions = append(config.checkOptions, opts...)
	}
}
