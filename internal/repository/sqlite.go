package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"karma-tycoon/internal/model"
	"karma-tycoon/internal/persist"
)

// SQLiteStore keeps snapshots and archived candles in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time; the WAL lets readers proceed.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot           TEXT PRIMARY KEY,
			version        INTEGER NOT NULL,
			saved_at       INTEGER NOT NULL,
			lifetime_karma REAL NOT NULL,
			data           BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS candles (
			slot      TEXT NOT NULL,
			timeframe INTEGER NOT NULL,
			bucket    INTEGER NOT NULL,
			time      INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			PRIMARY KEY (slot, timeframe, bucket)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// Save upserts the slot.
func (s *SQLiteStore) Save(ctx context.Context, slot string, snap *persist.Snapshot) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	data, err := persist.Marshal(snap)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO saves (slot, version, saved_at, lifetime_karma, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			version = excluded.version,
			saved_at = excluded.saved_at,
			lifetime_karma = excluded.lifetime_karma,
			data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, slot, snap.Version, snap.SavedAt.UnixMilli(), snap.LifetimeKarma, data); err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

// Load reads the slot.
func (s *SQLiteStore) Load(ctx context.Context, slot string) (*persist.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	return persist.Unmarshal(data)
}

// Delete removes the slot and its archived candles.
func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM candles WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete candles: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns every slot, sorted by name.
func (s *SQLiteStore) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, version, saved_at, lifetime_karma FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		var savedAt int64
		if err := rows.Scan(&info.Slot, &info.Version, &savedAt, &info.LifetimeKarma); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		info.SavedAt = time.UnixMilli(savedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// ArchiveCandles upserts sealed candles. Re-archiving a bucket overwrites it.
func (s *SQLiteStore) ArchiveCandles(ctx context.Context, slot string, timeframe int, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (slot, timeframe, bucket, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot, timeframe, bucket) DO UPDATE SET
			time = excluded.time, open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close, volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, slot, timeframe, c.Bucket, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("failed to archive candle: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Candles returns up to limit most recent archived candles in time order.
func (s *SQLiteStore) Candles(ctx context.Context, slot string, timeframe, limit int) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket, time, open, high, low, close, volume FROM candles
		WHERE slot = ? AND timeframe = ?
		ORDER BY bucket DESC LIMIT ?
	`, slot, timeframe, limit)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func reverse(cs []model.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
