package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

// PriceRepo keeps published day-ahead series for past market dates. A day's
// prices never change once published, so stored days are served without
// asking the providers again.
type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

// EnsureTable creates price_history when it does not exist yet.
func (r *PriceRepo) EnsureTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_history (
			market_date   DATE NOT NULL,
			timestamp     TIMESTAMPTZ NOT NULL,
			price_eur_mwh DOUBLE PRECISION NOT NULL,
			source        TEXT NOT NULL,
			created_at    TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (market_date, timestamp)
		)`)
	if err != nil {
		return fmt.Errorf("create price_history: %w", err)
	}
	return nil
}

// SaveDay upserts the series for one market date (YYYY-MM-DD).
func (r *PriceRepo) SaveDay(ctx context.Context, date string, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_history (market_date, timestamp, price_eur_mwh, source)
			 VALUES ($1::text::date, $2, $3, $4)
			 ON CONFLICT (market_date, timestamp)
			 DO UPDATE SET price_eur_mwh = EXCLUDED.price_eur_mwh, source = EXCLUDED.source`,
			date, p.Timestamp, p.PriceEURMWh, p.Source,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save prices for %s: %w", date, err)
	}
	return nil
}

// GetByDay returns the stored series for one market date, oldest first. An
// unknown date yields an empty slice.
func (r *PriceRepo) GetByDay(ctx context.Context, date string) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT timestamp, price_eur_mwh, source
		 FROM price_history
		 WHERE market_date = $1::text::date
		 ORDER BY timestamp ASC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", date, err)
	}
	defer rows.Close()
	return collectPrices(rows)
}

func collectPrices(rows rowsIter) ([]models.PricePoint, error) {
	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.PriceEURMWh, &p.Source); err != nil {
			return nil, err
		}
		p.Timestamp = p.Timestamp.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
