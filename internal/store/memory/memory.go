// Package memory is the in-process store used for development and
// tests. Link uniqueness is enforced under one mutex, which gives the
// same serialization the database unique constraint provides.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fedgate/fedgate/internal/store/core"
)

type Store struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*core.User
	links map[string]*core.ProviderLink // key: provider + "\x00" + providerKey
}

func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]*core.User),
		links: make(map[string]*core.ProviderLink),
	}
}

func linkKey(provider, providerKey string) string {
	return provider + "\x00" + providerKey
}

func (s *Store) FindUserByLink(ctx context.Context, provider, providerKey string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkKey(provider, providerKey)]
	if !ok {
		return nil, core.ErrNotFound
	}
	u, ok := s.users[link.UserID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUserFromAssertion(ctx context.Context, in core.NewExternalUser) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey(in.Provider, in.ProviderKey)
	if _, ok := s.links[key]; ok {
		return nil, core.ErrLinkExists
	}

	var user *core.User
	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			user = u
			break
		}
	}
	if user == nil {
		user = &core.User{
			ID:            uuid.New(),
			Email:         strings.ToLower(in.Email),
			FullName:      in.FullName,
			AvatarURL:     in.AvatarURL,
			EmailVerified: in.EmailVerified,
			CreatedAt:     time.Now().UTC(),
		}
		s.users[user.ID] = user
	}

	s.links[key] = &core.ProviderLink{
		Provider:    in.Provider,
		ProviderKey: in.ProviderKey,
		UserID:      user.ID,
		CreatedAt:   time.Now().UTC(),
	}

	cp := *user
	return &cp, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	for k, l := range s.links {
		if l.UserID == id {
			delete(s.links, k)
		}
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context, userID uuid.UUID) ([]core.ProviderLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.ProviderLink
	for _, l := range s.links {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}
