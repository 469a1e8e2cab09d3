// Package kvstore maps credential and session records onto a KeyValueStore
// using the auth_users / auth_current_user JSON layout.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"local-auth/internal/domain"
	"local-auth/internal/repository"
)

const (
	KeyCurrentUser = "auth_current_user"
	KeyUsers       = "auth_users"
)

type CredentialRepository struct {
	kv repository.KeyValueStore
}

func NewCredentialRepository(kv repository.KeyValueStore) repository.CredentialRepository {
	return &CredentialRepository{kv: kv}
}

// List returns the stored records in insertion order. A missing or empty value yields an empty list.
func (r *CredentialRepository) List(ctx context.Context) ([]domain.Credential, error) {
	raw, err := r.kv.Get(ctx, KeyUsers)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.Credential{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", KeyUsers, err)
	}
	if raw == "" {
		return []domain.Credential{}, nil
	}

	var creds []domain.Credential
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", KeyUsers, repository.ErrCorrupt, err)
	}
	if creds == nil {
		creds = []domain.Credential{}
	}
	return creds, nil
}

func (r *CredentialRepository) SaveAll(ctx context.Context, creds []domain.Credential) error {
	if creds == nil {
		creds = []domain.Credential{}
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyUsers, err)
	}
	if err := r.kv.Set(ctx, KeyUsers, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", KeyUsers, err)
	}
	return nil
}

type SessionRepository struct {
	kv repository.KeyValueStore
}

func NewSessionRepository(kv repository.KeyValueStore) repository.SessionRepository {
	return &SessionRepository{kv: kv}
}

func (r *SessionRepository) Load(ctx context.Context) (*domain.User, error) {
	raw, err := r.kv.Get(ctx, KeyCurrentUser)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", KeyCurrentUser, err)
	}
	if raw == "" {
		return nil, repository.ErrNotFound
	}

	var user *domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", KeyCurrentUser, repository.ErrCorrupt, err)
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *SessionRepository) Save(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyCurrentUser, err)
	}
	if err := r.kv.Set(ctx, KeyCurrentUser, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", KeyCurrentUser, err)
	}
	return nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.kv.Remove(ctx, KeyCurrentUser); err != nil {
		return fmt.Errorf("remove %s: %w", KeyCurrentUser, err)
	}
	return nil
}
