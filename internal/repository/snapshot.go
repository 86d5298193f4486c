package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/energy-market-backend/internal/models"
)

// SnapshotRepo keeps the latest observed copy of every business record.
// The contract stays the source of truth; nothing renders from here.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

const upsertSnapshot = `INSERT INTO trade_snapshots
	 (business_id, name, energy_amount, price_per_unit, description,
	  creator, is_verified, decrypted_value, created_at, observed_at)
	 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
	 ON CONFLICT (business_id) DO UPDATE SET
	  name = EXCLUDED.name,
	  energy_amount = EXCLUDED.energy_amount,
	  price_per_unit = EXCLUDED.price_per_unit,
	  description = EXCLUDED.description,
	  is_verified = EXCLUDED.is_verified,
	  decrypted_value = EXCLUDED.decrypted_value,
	  observed_at = NOW()`

// SaveAll upserts every trade in one batch.
func (r *SnapshotRepo) SaveAll(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(upsertSnapshot,
			t.ID, t.Name, int64(t.EnergyAmount), int64(t.PricePerUnit), t.Description,
			t.Creator, t.IsVerified, int64(t.DecryptedValue), t.Timestamp,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert snapshot %s: %w", trades[i].ID, err)
		}
	}
	return nil
}

// GetAll returns the most recently created snapshots first.
func (r *SnapshotRepo) GetAll(ctx context.Context, limit int) ([]models.Trade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT business_id, name, energy_amount, price_per_unit, description,
		        creator, is_verified, decrypted_value, created_at
		 FROM trade_snapshots
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *SnapshotRepo) GetByID(ctx context.Context, id string) (*models.Trade, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT business_id, name, energy_amount, price_per_unit, description,
		        creator, is_verified, decrypted_value, created_at
		 FROM trade_snapshots WHERE business_id = $1`, id)
	t, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// CountToday counts trades account created since 00:00 UTC.
func (r *SnapshotRepo) CountToday(ctx context.Context, account string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trade_snapshots
		 WHERE LOWER(creator) = LOWER($1) AND created_at >= $2`,
		account, DayStartNow(),
	).Scan(&count)
	return count, err
}

// --- scan helpers ---

func scanSnapshot(row scannable) (*models.Trade, error) {
	var t models.Trade
	var energy, price, decrypted int64
	err := row.Scan(
		&t.ID, &t.Name, &energy, &price, &t.Description,
		&t.Creator, &t.IsVerified, &decrypted, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	t.EnergyAmount, t.PricePerUnit, t.DecryptedValue = uint64(energy), uint64(price), uint64(decrypted)
	return &t, nil
}

func collectSnapshots(rows rowsIter) ([]models.Trade, error) {
	var out []models.Trade
	for rows.Next() {
		t, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
