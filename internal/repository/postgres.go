package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"karma-tycoon/internal/model"
	"karma-tycoon/internal/persist"
)

// Schema is the PostgreSQL schema for snapshot slots and archived candles.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS tycoon_saves (
		slot           VARCHAR(64) PRIMARY KEY,
		version        INT NOT NULL,
		saved_at       TIMESTAMPTZ NOT NULL,
		lifetime_karma DOUBLE PRECISION NOT NULL DEFAULT 0,
		data           JSONB NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tycoon_saves_lifetime ON tycoon_saves(lifetime_karma DESC)`,
	`CREATE TABLE IF NOT EXISTS tycoon_candles (
		slot      VARCHAR(64) NOT NULL,
		timeframe INT NOT NULL,
		bucket    BIGINT NOT NULL,
		time      BIGINT NOT NULL,
		open      DOUBLE PRECISION,
		high      DOUBLE PRECISION,
		low       DOUBLE PRECISION,
		close     DOUBLE PRECISION,
		volume    DOUBLE PRECISION,
		PRIMARY KEY (slot, timeframe, bucket)
	)`,
}

// PostgresStore keeps snapshots as JSONB rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save upserts the slot.
func (r *PostgresStore) Save(ctx context.Context, slot string, snap *persist.Snapshot) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	data, err := persist.Marshal(snap)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO tycoon_saves (slot, version, saved_at, lifetime_karma, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (slot) DO UPDATE SET
			version = EXCLUDED.version,
			saved_at = EXCLUDED.saved_at,
			lifetime_karma = EXCLUDED.lifetime_karma,
			data = EXCLUDED.data,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, slot, snap.Version, snap.SavedAt, snap.LifetimeKarma, data); err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

// Load reads the slot.
// Returns ErrSlotNotFound if the slot does not exist.
func (r *PostgresStore) Load(ctx context.Context, slot string) (*persist.Snapshot, error) {
	const query = `SELECT data FROM tycoon_saves WHERE slot = $1`

	var data []byte
	err := r.pool.QueryRow(ctx, query, slot).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	return persist.Unmarshal(data)
}

// Delete removes the slot and its archived candles in one transaction.
func (r *PostgresStore) Delete(ctx context.Context, slot string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tycoon_saves WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tycoon_candles WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("failed to delete candles: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns every slot, sorted by name.
func (r *PostgresStore) List(ctx context.Context) ([]SlotInfo, error) {
	const query = `SELECT slot, version, saved_at, lifetime_karma FROM tycoon_saves ORDER BY slot`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		if err := rows.Scan(&info.Slot, &info.Version, &info.SavedAt, &info.LifetimeKarma); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}
	return out, nil
}

// Leaderboard returns the slots with the highest lifetime karma.
func (r *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]SlotInfo, error) {
	const query = `
		SELECT slot, version, saved_at, lifetime_karma FROM tycoon_saves
		ORDER BY lifetime_karma DESC, slot
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		if err := rows.Scan(&info.Slot, &info.Version, &info.SavedAt, &info.LifetimeKarma); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// ArchiveCandles upserts sealed candles in one batch.
func (r *PostgresStore) ArchiveCandles(ctx context.Context, slot string, timeframe int, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	const query = `
		INSERT INTO tycoon_candles (slot, timeframe, bucket, time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slot, timeframe, bucket) DO UPDATE SET
			time = EXCLUDED.time, open = EXCLUDED.open, high = EXCLUDED.high,
			low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume
	`
	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(query, slot, timeframe, c.Bucket, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to archive candles: %w", err)
	}
	return nil
}

// Candles returns up to limit most recent archived candles in time order.
func (r *PostgresStore) Candles(ctx context.Context, slot string, timeframe, limit int) ([]model.Candle, error) {
	const query = `
		SELECT bucket, time, open, high, low, close, volume FROM (
			SELECT * FROM tycoon_candles
			WHERE slot = $1 AND timeframe = $2
			ORDER BY bucket DESC
			LIMIT $3
		) recent
		ORDER BY bucket
	`
	rows, err := r.pool.Query(ctx, query, slot, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Bucket, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close does nothing; the pool is owned by the caller.
func (r *PostgresStore) Close() error { return nil }
