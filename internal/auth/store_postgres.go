// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// PostgresBlobStorage implements BlobStorage using pgx.
//
// # Error Mapping
//
// pgx.ErrNoRows maps to [apperr.NotFound]; every other failure is wrapped in
// [apperr.Storage] so driver details do not leak.
type PostgresBlobStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresBlobStorage creates a new PostgreSQL implementation of BlobStorage.
func NewPostgresBlobStorage(pool *pgxpool.Pool) *PostgresBlobStorage {
	return &PostgresBlobStorage{pool: pool}
}

// Load selects the blob row of a user.
func (repository *PostgresBlobStorage) Load(ctx context.Context, userID int64) ([]byte, error) {
	const query = `
		SELECT blob
		FROM auth.credential_sessions
		WHERE user_id = $1`

	var blob []byte
	err := repository.pool.QueryRow(ctx, query, userID).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errSessionNotFound()
		}
		return nil, apperr.Storage("load session from postgres", err)
	}

	return blob, nil
}

// Save upserts the blob row of a user.
func (repository *PostgresBlobStorage) Save(ctx context.Context, userID int64, blob []byte) error {
	const query = `
		INSERT INTO auth.credential_sessions (user_id, blob, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`

	if _, err := repository.pool.Exec(ctx, query, userID, blob); err != nil {
		return apperr.Storage("save session to postgres", err)
	}
	return nil
}

// Delete removes the blob row of a user.
func (repository *PostgresBlobStorage) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM auth.credential_sessions WHERE user_id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return apperr.Storage("delete session from postgres", err)
	}
	return nil
}

// Ping checks pool connectivity.
func (repository *PostgresBlobStorage) Ping(ctx context.Context) error {
	if err := repository.pool.Ping(ctx); err != nil {
		return apperr.Storage("ping postgres", err)
	}
	return nil
}
