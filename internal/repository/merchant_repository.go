package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/taipay/cashme/internal/models"
)

const merchantColumns = `wallet_address, name, brand_name, description, phone_number, email,
	address, place_id, latitude, longitude, commission_percent, daily_limit,
	reputation, success_count, created_at, updated_at`

type MerchantRepository struct {
	db *sql.DB
}

func NewMerchantRepository(db *sql.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS merchants (
			wallet_address VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			phone_number VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			address TEXT NOT NULL,
			place_id VARCHAR(255) NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			commission_percent DOUBLE PRECISION NOT NULL DEFAULT 0
				CHECK (commission_percent >= 0 AND commission_percent <= 100),
			daily_limit DOUBLE PRECISION NOT NULL DEFAULT 1000000 CHECK (daily_limit >= 0),
			reputation DOUBLE PRECISION NOT NULL DEFAULT 0,
			success_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_merchants_wallet_lower ON merchants(LOWER(wallet_address))`,
		`CREATE INDEX IF NOT EXISTS idx_merchants_lat_lon ON merchants(latitude, longitude)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *MerchantRepository) CreateMerchant(ctx context.Context, m *models.Merchant) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO merchants (wallet_address, name, brand_name, description, phone_number, email,
			address, place_id, latitude, longitude, commission_percent, daily_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, m.WalletAddress, m.Name, m.BrandName, m.Description, m.PhoneNumber, m.Email,
		m.Address, m.PlaceID, m.Location.Latitude, m.Location.Longitude, m.CommissionPercent, m.DailyLimit,
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrMerchantExists
	}
	return err
}

// GetMerchant matches the wallet address case-insensitively.
func (r *MerchantRepository) GetMerchant(ctx context.Context, walletAddress string) (*models.Merchant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE LOWER(wallet_address) = LOWER($1)`,
		strings.TrimSpace(walletAddress))

	m, err := scanMerchant(row)
	if err == sql.ErrNoRows {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MerchantRepository) ListMerchants(ctx context.Context) ([]models.Merchant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+merchantColumns+` FROM merchants ORDER BY created_at, wallet_address`)
	if err != nil {
		return nil, err
	}
	return collectMerchants(rows)
}

func (r *MerchantRepository) FindMerchantsNear(ctx context.Context, point *models.Location, radiusKm float64) ([]models.Merchant, error) {
	if point == nil || radiusKm <= 0 {
		return r.ListMerchants(ctx)
	}

	minLat, maxLat, minLon, maxLon := boundingBox(point.Latitude, point.Longitude, radiusKm)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+merchantColumns+` FROM merchants
		WHERE latitude BETWEEN $1 AND $2
		ORDER BY created_at, wallet_address
	`, minLat, maxLat)
	if err != nil {
		return nil, err
	}
	all, err := collectMerchants(rows)
	if err != nil {
		return nil, err
	}

	res := all[:0]
	for _, m := range all {
		if inLonRange(m.Location.Longitude, minLon, maxLon) {
			res = append(res, m)
		}
	}
	return res, nil
}

func (r *MerchantRepository) UpdateDailyLimit(ctx context.Context, walletAddress string, expected, newLimit float64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE merchants
		SET daily_limit = $1, updated_at = NOW()
		WHERE LOWER(wallet_address) = LOWER($2) AND daily_limit = $3
	`, newLimit, walletAddress, expected)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMerchant(row rowScanner) (*models.Merchant, error) {
	var m models.Merchant
	err := row.Scan(&m.WalletAddress, &m.Name, &m.BrandName, &m.Description, &m.PhoneNumber, &m.Email,
		&m.Address, &m.PlaceID, &m.Location.Latitude, &m.Location.Longitude, &m.CommissionPercent, &m.DailyLimit,
		&m.Reputation, &m.SuccessCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMerchants(rows *sql.Rows) ([]models.Merchant, error) {
	defer rows.Close()

	var res []models.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}
	return res, rows.Err()
}
