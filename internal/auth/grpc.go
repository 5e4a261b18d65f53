package auth

import (
	"context"
	"errors"
	"strings"

	"karavanCanteen/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata, resolves the caller against users and injects both
// the Principal and the Actor into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, users UserLookup, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		ctx = WithPrincipal(ctx, p)
		if users != nil {
			a, err := ResolveActor(ctx, users, p)
			if errors.Is(err, ErrUnknownUser) {
				return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
			}
			if err != nil {
				return nil, status.Errorf(codes.Unavailable, "resolve user: %v", err)
			}
			ctx = WithActor(ctx, a)
		}
		return handler(ctx, req)
	}
}

// RequireActor ensures a resolved actor is present in context.
func RequireActor(ctx context.Context) (models.Actor, error) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return models.Actor{}, status.Error(codes.Unauthenticated, "missing actor")
	}
	return a, nil
}

// RequireStaff ensures the caller is canteen staff or an admin.
func RequireStaff(ctx context.Context) (models.Actor, error) {
	a, err := RequireActor(ctx)
	if err != nil {
		return a, err
	}
	if !a.Role.IsStaff() {
		return a, status.Error(codes.PermissionDenied, "only canteen staff can perform this action")
	}
	return a, nil
}
