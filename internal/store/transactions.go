package store

import (
	"context"
	"database/sql"

	"dorbot/internal/models"
)

// CreateTransaction inserts a new transaction record
func (s *Store) CreateTransaction(ctx context.Context, trx *models.Transaction) error {
	query := `
		INSERT INTO transactions
			(trx_id, phone_number, target_number, package_name, package_id,
			 amount, cost, status, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		trx.TrxID, trx.PhoneNumber, trx.TargetNumber, trx.PackageName, trx.PackageID,
		trx.Amount, trx.Cost, trx.Status, trx.PaymentMethod,
	).Scan(&trx.CreatedAt, &trx.UpdatedAt)
}

// GetTransaction retrieves a transaction by id, nil when absent.
func (s *Store) GetTransaction(ctx context.Context, trxID string) (*models.Transaction, error) {
	var trx models.Transaction
	err := s.db.GetContext(ctx, &trx, "SELECT * FROM transactions WHERE trx_id = $1", trxID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// UpdateTransactionStatus sets the terminal status of a transaction along
// with the fields the outcome produced.
func (s *Store) UpdateTransactionStatus(ctx context.Context, trxID, status, hesdaTrxID, paymentMethod, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1,
		    hesda_trx_id = COALESCE(NULLIF($2, ''), hesda_trx_id),
		    payment_method = COALESCE(NULLIF($3, ''), payment_method),
		    error_message = $4,
		    updated_at = NOW()
		WHERE trx_id = $5`,
		status, hesdaTrxID, paymentMethod, errorMessage, trxID)
	return err
}

// GetUserTransactions retrieves a user's transactions, newest first.
func (s *Store) GetUserTransactions(ctx context.Context, phoneNumber string, limit int) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := s.db.SelectContext(ctx, &trxs,
		"SELECT * FROM transactions WHERE phone_number = $1 ORDER BY created_at DESC LIMIT $2",
		phoneNumber, limit)
	return trxs, err
}

// GetTransactionsByStatus retrieves transactions in a given status, oldest
// first, for the admin pending view.
func (s *Store) GetTransactionsByStatus(ctx context.Context, status string, limit int) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := s.db.SelectContext(ctx, &trxs,
		"SELECT * FROM transactions WHERE status = $1 ORDER BY created_at LIMIT $2",
		status, limit)
	return trxs, err
}

// CountTransactionsByStatus returns counts per status for the stats view.
func (s *Store) CountTransactionsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) FROM transactions GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}
