// Package core defines the storage contracts the federation engine
// consumes. The engine only ever touches these interfaces; pg and
// memory provide the implementations.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound: the user or link does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrLinkExists: unique (provider, provider_key) violated. The
	// orchestrator surfaces this as LinkConflict, never as a crash.
	ErrLinkExists = errors.New("store: provider link already exists")
)

// User is the local account record.
type User struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	AvatarURL     string
	EmailVerified bool
	CreatedAt     time.Time
}

// ProviderLink is the durable relation between an external provider's
// subject key and a local account. Unique on (Provider, ProviderKey).
type ProviderLink struct {
	Provider    string
	ProviderKey string
	UserID      uuid.UUID
	CreatedAt   time.Time
}

// NewExternalUser carries everything needed to provision a local
// account from an external assertion.
type NewExternalUser struct {
	Provider      string
	ProviderKey   string
	Email         string
	FullName      string
	AvatarURL     string
	EmailVerified bool
}

// Store is the user/link collaborator contract.
type Store interface {
	// FindUserByLink resolves a local user from a provider link.
	// ErrNotFound when no link exists.
	FindUserByLink(ctx context.Context, provider, providerKey string) (*User, error)

	// CreateUserFromAssertion provisions a user and its provider link
	// in one step. When a user with the same email already exists the
	// link is attached to that user instead of creating a duplicate
	// account. ErrLinkExists when the (provider, providerKey) pair is
	// already taken.
	CreateUserFromAssertion(ctx context.Context, in NewExternalUser) (*User, error)

	// GetUser fetches a user by id. ErrNotFound when absent.
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// FindUserByEmail fetches a user by email. ErrNotFound when absent.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// SetEmailVerified marks the user's email as verified.
	SetEmailVerified(ctx context.Context, id uuid.UUID) error

	// DeleteUser removes a user and its links.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// ListLinks returns all provider links for a user.
	ListLinks(ctx context.Context, userID uuid.UUID) ([]ProviderLink, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}
