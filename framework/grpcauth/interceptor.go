// Package grpcauth adapts the session guard to gRPC server interceptors.
//
// Redirects make no sense on a gRPC connection, so every failed check is
// translated into a status error: codes.Unauthenticated for missing or
// invalid sessions, codes.PermissionDenied for sessions that do not
// satisfy the method's role or permission requirements.
package grpcauth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sessionguard "github.com/sessionkit/go-session-guard"
)

// TokenExtractor pulls a session token out of the incoming metadata. An
// empty token with a nil error means no credentials were presented.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads the token from the standard "authorization"
// metadata key, expecting a Bearer scheme.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization metadata format must be Bearer {token}")
	}

	return parts[1], nil
}

// Interceptor runs the guard for incoming gRPC requests.
type Interceptor struct {
	guard           *sessionguard.Guard
	tokenExtractor  TokenExtractor
	checkOptions    []sessionguard.CheckOption
	excludedMethods map[string]bool
}

// New creates an interceptor around an existing guard.
func New(guard *sessionguard.Guard, opts ...Option) (*Interceptor, error) {
	if guard == nil {
		return nil, errors.New("a guard is required")
	}

	interceptor := &Interceptor{
		guard:           guard,
		tokenExtractor:  MetadataTokenExtractor,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(interceptor)
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that checks
// the session before invoking the handler. Verified claims are available
// to the handler via sessionguard.SessionFromContext.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		checkedCtx, err := i.checkRequest(ctx)
		if err != nil {
			return nil, err
		}

		return handler(checkedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// checks the session before invoking the handler.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		checkedCtx, err := i.checkRequest(ss.Context())
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: checkedCtx})
	}
}

func (i *Interceptor) checkRequest(ctx context.Context) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}

	decision := i.guard.Check(ctx, token, i.checkOptions...)
	if decision.Kind == sessionguard.DecisionAllow {
		return sessionguard.SetSession(ctx, decision.Claims), nil
	}

	return ctx, statusFromReason(decision.Reason)
}

// statusFromReason maps guard failure reasons onto gRPC status codes.
func statusFromReason(reason error) error {
	switch {
	case errors.Is(reason, sessionguard.ErrSessionForbidden):
		return status.Error(codes.PermissionDenied, "session is not authorized for this method")
	case errors.Is(reason, sessionguard.ErrSessionMissing):
		return status.Error(codes.Unauthenticated, "session token is missing")
	case errors.Is(reason, sessionguard.ErrSessionInvalid):
		return status.Error(codes.Unauthenticated, "session token is invalid")
	default:
		return status.Error(codes.Unauthenticated, "session check failed")
	}
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context carrying the session claims.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
