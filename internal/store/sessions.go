package store

import (
	"context"
	"database/sql"

	"dorbot/internal/models"
)

// SaveSession stores or replaces the reseller session for a target number.
func (s *Store) SaveSession(ctx context.Context, phoneNumber, accessToken, authID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (phone_number, access_token, auth_id, created_at, last_used)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (phone_number) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    auth_id = COALESCE(NULLIF(EXCLUDED.auth_id, ''), sessions.auth_id),
		    last_used = NOW()`,
		phoneNumber, accessToken, authID)
	return err
}

// GetSession retrieves the session for a target number, nil when absent.
func (s *Store) GetSession(ctx context.Context, phoneNumber string) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session, "SELECT * FROM sessions WHERE phone_number = $1", phoneNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession updates the session's last-used timestamp.
func (s *Store) TouchSession(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET last_used = NOW() WHERE phone_number = $1", phoneNumber)
	return err
}

// DeleteSession removes the session for a target number.
func (s *Store) DeleteSession(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE phone_number = $1", phoneNumber)
	return err
}
