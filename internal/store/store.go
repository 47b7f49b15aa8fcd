package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dorbot/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetUser retrieves a user by phone number. Returns nil without error when
// the user is not registered yet.
func (s *Store) GetUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE phone_number = $1", phoneNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a new user with zero saldo. Safe to call when the
// row already exists.
func (s *Store) CreateUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	query := `
		INSERT INTO users (phone_number, saldo, total_trx, registered_at, last_activity)
		VALUES ($1, 0, 0, NOW(), NOW())
		ON CONFLICT (phone_number) DO UPDATE SET last_activity = NOW()
		RETURNING *`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, phoneNumber); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// AdjustSaldo applies a balance change in a single atomic statement.
// Mode is "add", "subtract" or "set". Subtract does not enforce
// non-negativity; callers check sufficiency first.
func (s *Store) AdjustSaldo(ctx context.Context, phoneNumber string, amount int64, mode string) (*models.User, error) {
	var query string
	switch mode {
	case "add":
		query = `UPDATE users SET saldo = saldo + $1, last_activity = NOW() WHERE phone_number = $2 RETURNING *`
	case "subtract":
		query = `UPDATE users SET saldo = saldo - $1, last_activity = NOW() WHERE phone_number = $2 RETURNING *`
	case "set":
		query = `UPDATE users SET saldo = $1, last_activity = NOW() WHERE phone_number = $2 RETURNING *`
	default:
		return nil, fmt.Errorf("unknown adjust mode: %s", mode)
	}

	var user models.User
	err := s.db.GetContext(ctx, &user, query, amount, phoneNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", phoneNumber)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementUserTrx bumps a user's lifetime transaction counter.
func (s *Store) IncrementUserTrx(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET total_trx = total_trx + 1, last_activity = NOW() WHERE phone_number = $1",
		phoneNumber)
	return err
}

// ListUsers retrieves all registered users keyed by phone number.
func (s *Store) ListUsers(ctx context.Context) (map[string]*models.User, error) {
	var users []models.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY registered_at"); err != nil {
		return nil, err
	}

	out := make(map[string]*models.User, len(users))
	for i := range users {
		out[users[i].PhoneNumber] = &users[i]
	}
	return out, nil
}

// TopUsersBySaldo retrieves the highest-balance users, for the admin view.
func (s *Store) TopUsersBySaldo(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT * FROM users ORDER BY saldo DESC, phone_number LIMIT $1", limit)
	return users, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
