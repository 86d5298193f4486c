package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/energy-market-backend/internal/models"
)

// VerificationRepo is the append-only log of successful local decryptions.
type VerificationRepo struct {
	pool *pgxpool.Pool
}

func NewVerificationRepo(pool *pgxpool.Pool) *VerificationRepo {
	return &VerificationRepo{pool: pool}
}

func (r *VerificationRepo) Record(ctx context.Context, v *models.Verification) (*models.Verification, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO decryption_log (business_id, account, clear_value, handle)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, business_id, account, clear_value, handle, created_at`,
		v.BusinessID, v.Account, int64(v.ClearValue), v.Handle,
	)
	return scanVerification(row)
}

// GetRecent returns account's newest verifications first. An empty account
// returns everyone's.
func (r *VerificationRepo) GetRecent(ctx context.Context, account string, limit int) ([]models.Verification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, business_id, account, clear_value, handle, created_at
		 FROM decryption_log
		 WHERE $1 = '' OR LOWER(account) = LOWER($1)
		 ORDER BY created_at DESC
		 LIMIT $2`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanVerification(row scannable) (*models.Verification, error) {
	var v models.Verification
	var clearValue int64
	if err := row.Scan(&v.ID, &v.BusinessID, &v.Account, &clearValue, &v.Handle, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ClearValue = uint64(clearValue)
	return &v, nil
}
