package repository

import (
	"context"

	"local-auth/internal/domain"
)

// CredentialRepository persists the ordered list of credential records.
type CredentialRepository interface {
	List(ctx context.Context) ([]domain.Credential, error)
	SaveAll(ctx context.Context, creds []domain.Credential) error
}

// SessionRepository persists the current user, if any.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.User, error)
	Save(ctx context.Context, user domain.User) error
	Clear(ctx context.Context) error
}
