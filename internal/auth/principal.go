package auth

import (
	"context"
	"errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the resolved identity of the request's caller
type Principal struct {
	ID       string
	Username string
	Name     string
}

// Resolver turns a raw bearer token into a Principal,
// or fails with ErrUnauthenticated
type Resolver interface {
	Resolve(ctx context.Context, rawToken string) (*Principal, error)
}

type principalContextKey struct{}

func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*Principal)
	return principal, ok && principal != nil
}
