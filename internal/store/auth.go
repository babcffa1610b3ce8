package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNoAuth is returned when no authentication is stored
var ErrNoAuth = errors.New("no authentication stored")

// The provider account is a single row
const authRowID = 1

// GetAuth returns the stored provider credentials, or ErrNoAuth
func (db *DB) GetAuth(ctx context.Context) (*Auth, error) {
	var a Auth
	var expiresAt int64
	err := db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at FROM auth WHERE id = ?
	`, authRowID).Scan(&a.UserID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, err
	}
	a.ExpiresAt = db.fromUnix(expiresAt)
	return &a, nil
}

// SaveAuth replaces the stored credentials after a completed OAuth flow
func (db *DB) SaveAuth(ctx context.Context, a *Auth) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO auth (id, user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, authRowID, a.UserID, a.AccessToken, a.RefreshToken, toUnix(a.ExpiresAt))
	return err
}

// UpdateTokens records a refreshed token pair. The account must already exist.
func (db *DB) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, accessToken, refreshToken, toUnix(expiresAt), authRowID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}

// ClearAuth forgets the stored credentials. Clearing when nothing is stored is not an error.
func (db *DB) ClearAuth(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM auth WHERE id = ?`, authRowID)
	return err
}
