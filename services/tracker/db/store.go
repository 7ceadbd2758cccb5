package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

// Store wraps the archive tables.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Schema creates the archive tables when they are missing.
const Schema = `
CREATE SCHEMA IF NOT EXISTS carbon;

CREATE TABLE IF NOT EXISTS carbon.intensity_readings (
    period_from  timestamptz PRIMARY KEY,
    period_to    timestamptz NOT NULL,
    forecast     integer     NOT NULL,
    actual       integer,
    intensity_index text     NOT NULL,
    retrieved_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS carbon.generation_mix (
    retrieved_at timestamptz NOT NULL,
    fuel         text        NOT NULL,
    perc         double precision NOT NULL,
    PRIMARY KEY (retrieved_at, fuel)
);
`

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

const upsertIntensitySQL = `INSERT INTO carbon.intensity_readings AS r (period_from, period_to, forecast, actual, intensity_index, retrieved_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (period_from) DO UPDATE
SET period_to = EXCLUDED.period_to,
    forecast = EXCLUDED.forecast,
    actual = COALESCE(EXCLUDED.actual, r.actual),
    intensity_index = EXCLUDED.intensity_index,
    retrieved_at = EXCLUDED.retrieved_at`

// ArchiveIntensity upserts readings keyed by the start of their half hour.
func (s *Store) ArchiveIntensity(ctx context.Context, rows []models.IntensityReading, retrievedAt time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertIntensitySQL, r.From, r.To, r.Forecast, r.Actual, r.Index, retrievedAt)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range rows {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const insertMixSQL = `INSERT INTO carbon.generation_mix (retrieved_at, fuel, perc)
VALUES ($1,$2,$3)
ON CONFLICT (retrieved_at, fuel) DO UPDATE
SET perc = EXCLUDED.perc`

// ArchiveGenerationMix stores one row per fuel for the retrieval time.
func (s *Store) ArchiveGenerationMix(ctx context.Context, rows []models.GenerationMixEntry, retrievedAt time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertMixSQL, retrievedAt, r.Fuel, r.Perc)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range rows {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const intensitySinceSQL = `
    SELECT period_from, period_to, forecast, actual, intensity_index, retrieved_at
    FROM carbon.intensity_readings
    WHERE period_from >= $1
    ORDER BY period_from
`

// IntensitySince returns archived readings starting at or after since.
func (s *Store) IntensitySince(ctx context.Context, since time.Time) ([]models.IntensitySnapshot, error) {
	rows, err := s.pool.Query(ctx, intensitySinceSQL, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]models.IntensitySnapshot, 0)
	for rows.Next() {
		var snap models.IntensitySnapshot
		if err := rows.Scan(
			&snap.From,
			&snap.To,
			&snap.Forecast,
			&snap.Actual,
			&snap.Index,
			&snap.RetrievedAt,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
