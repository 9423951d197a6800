/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/config"
	"github.com/sakarnDev/jira-worklog/internal/domain"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// EnsureSchema creates the sessions table when it does not exist yet. The
// service owns no other tables; fetched tracker data is never persisted.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const q = `
        CREATE TABLE IF NOT EXISTS sessions(
            id         TEXT PRIMARY KEY,
            email      TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            expires_at TIMESTAMPTZ NOT NULL
        )`
	_, err := r.db.Pool.Exec(ctx, q)
	return err
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil {
		return errors.New("advisory unlock returned false")
	}
	return err
}

func (r *Repository) CreateSession(ctx context.Context, email string, ttl time.Duration) (domain.Session, error) {
	s := domain.Session{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	const q = `INSERT INTO sessions(id, email, created_at, expires_at) VALUES($1,$2,$3,$4)`
	if _, err := r.db.Pool.Exec(ctx, q, s.ID, s.Email, s.CreatedAt, s.ExpiresAt); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// FindSession returns nil without error when the session is missing or
// already expired.
func (r *Repository) FindSession(ctx context.Context, id string) (*domain.Session, error) {
	const q = `SELECT id, email, created_at, expires_at FROM sessions WHERE id=$1 AND expires_at > now()`
	var s domain.Session
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
