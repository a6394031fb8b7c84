// Package pg is the postgres store. Link uniqueness rides the
// provider_link primary key; a 23505 from a concurrent registration is
// translated to core.ErrLinkExists, never bubbled up raw.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedgate/fedgate/internal/observability/logger"
	"github.com/fedgate/fedgate/internal/store/core"
	migrations "github.com/fedgate/fedgate/migrations/postgres"
)

const uniqueViolation = "23505"

type Store struct{ pool *pgxpool.Pool }

// Tuning mirrors the storage.postgres config block.
type Tuning struct {
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, tuning Tuning) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if tuning.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(tuning.MaxOpenConns)
	}
	if tuning.MinIdleConns > 0 {
		pcfg.MinConns = int32(tuning.MinIdleConns)
	}
	if tuning.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(tuning.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Non-blocking startup: the app may come up before the database.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	}

	return &Store{pool: pool}, nil
}

// Migrate applies the embedded migrations in filename order. All
// statements are idempotent, so re-running is safe.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)

	for _, name := range entries {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
		logger.L().Info("migration applied", logger.String("file", name))
	}
	return nil
}

func (s *Store) FindUserByLink(ctx context.Context, provider, providerKey string) (*core.User, error) {
	const q = `
        SELECT u.id, u.email, u.full_name, u.avatar_url, u.email_verified, u.created_at
          FROM provider_link l
          JOIN app_user u ON u.id = l.user_id
         WHERE l.provider = $1 AND l.provider_key = $2`

	var u core.User
	err := s.pool.QueryRow(ctx, q, provider, providerKey).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUserFromAssertion(ctx context.Context, in core.NewExternalUser) (*core.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	email := strings.ToLower(in.Email)

	var u core.User
	err = tx.QueryRow(ctx, `
        SELECT id, email, full_name, avatar_url, email_verified, created_at
          FROM app_user WHERE LOWER(email) = $1`, email).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt,
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		u = core.User{
			ID:            uuid.New(),
			Email:         email,
			FullName:      in.FullName,
			AvatarURL:     in.AvatarURL,
			EmailVerified: in.EmailVerified,
			CreatedAt:     time.Now().UTC(),
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO app_user (id, email, full_name, avatar_url, email_verified, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Email, u.FullName, u.AvatarURL, u.EmailVerified, u.CreatedAt,
		); err != nil {
			return nil, mapPgErr(err)
		}
	case err != nil:
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO provider_link (provider, provider_key, user_id)
        VALUES ($1, $2, $3)`,
		in.Provider, in.ProviderKey, u.ID,
	); err != nil {
		return nil, mapPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*core.User, error) {
	const q = `
        SELECT id, email, full_name, avatar_url, email_verified, created_at
          FROM app_user WHERE id = $1`

	var u core.User
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	const q = `
        SELECT id, email, full_name, avatar_url, email_verified, created_at
          FROM app_user WHERE LOWER(email) = LOWER($1)`

	var u core.User
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `UPDATE app_user SET email_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context, userID uuid.UUID) ([]core.ProviderLink, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT provider, provider_key, user_id, created_at
          FROM provider_link WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ProviderLink
	for rows.Next() {
		var l core.ProviderLink
		if err := rows.Scan(&l.Provider, &l.ProviderKey, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return core.ErrLinkExists
	}
	return err
}
