package grpcauth

import (
	sessionguard "github.com/sessionkit/go-session-guard"
)

// Option defines a functional option for configuring the interceptor.
type Option func(*Interceptor)

// WithTokenExtractor overrides how the token is read from the incoming
// metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) {
		if extractor != nil {
			i.tokenExtractor = extractor
		}
	}
}

// WithCheckOptions forwards check options to the guard for every
// intercepted method, such as sessionguard.WithQuery.
func WithCheckOptions(opts ...sessionguard.CheckOption) Option {
	return func(i *Interceptor) {
		i.checkOptions = append(i.checkOptions, opts...)
	}
}

// WithExcludedMethods skips the session check for the given full method
// names, e.g. "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
	}
}
