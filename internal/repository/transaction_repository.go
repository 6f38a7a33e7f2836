package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/taipay/cashme/internal/models"
)

const transactionColumns = `id, date, merchant_address, merchant_name, amount, token_symbol, input_amount,
			status, user_address, transaction_hash, created_at, updated_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			merchant_address VARCHAR(64) NOT NULL,
			merchant_name VARCHAR(255) NOT NULL,
			amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
			token_symbol VARCHAR(16) NOT NULL DEFAULT '',
			input_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'completed',
			user_address VARCHAR(64) NOT NULL,
			transaction_hash VARCHAR(128) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(LOWER(user_address), date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_merchant_status ON transactions(LOWER(merchant_address), status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (id, date, merchant_address, merchant_name, amount, token_symbol,
			input_amount, status, user_address, transaction_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, tx.ID, tx.Date, tx.MerchantAddress, tx.MerchantName, tx.Amount, tx.TokenSymbol,
		tx.InputAmount, tx.Status, tx.UserAddress, tx.TransactionHash,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

func (r *TransactionRepository) ListTransactionsForUser(ctx context.Context, userAddress string) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE LOWER(user_address) = LOWER($1)
		ORDER BY date DESC
	`, userAddress)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) ListTransactionsForMerchant(ctx context.Context, merchantAddress string, limit int) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE LOWER(merchant_address) = LOWER($1)
		ORDER BY date DESC
		LIMIT $2
	`, merchantAddress, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) CountCompletedTransactions(ctx context.Context, merchantAddress string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE LOWER(merchant_address) = LOWER($1) AND status = $2
	`, merchantAddress, models.TransactionCompleted).Scan(&count)
	return count, err
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	var res []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.Date, &tx.MerchantAddress, &tx.MerchantName, &tx.Amount,
			&tx.TokenSymbol, &tx.InputAmount, &tx.Status, &tx.UserAddress, &tx.TransactionHash,
			&tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, tx)
	}
	return res, rows.Err()
}
