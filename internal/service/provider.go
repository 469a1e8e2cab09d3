package service

import (
	"context"
	"errors"
)

// ErrNoProvider is the panic value of MustAuthStore outside a provider scope.
var ErrNoProvider = errors.New("auth store must be used within a provider scope")

type providerKey struct{}

// WithAuthStore scopes store to ctx and everything derived from it.
func WithAuthStore(ctx context.Context, store Authenticator) context.Context {
	return context.WithValue(ctx, providerKey{}, store)
}

func AuthStoreFrom(ctx context.Context) (Authenticator, bool) {
	store, ok := ctx.Value(providerKey{}).(Authenticator)
	return store, ok
}

// MustAuthStore returns the store in scope and panics with ErrNoProvider if there is none.
func MustAuthStore(ctx context.Context) Authenticator {
	store, ok := AuthStoreFrom(ctx)
	if !ok {
		panic(ErrNoProvider)
	}
	return store
}
