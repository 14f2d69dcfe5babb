// Package history persists confirmed candles and chart layouts to SQLite
// so a restarted daemon can backfill the candle store without waiting for
// live data.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"chartcore/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Store is a single-writer SQLite store with transaction batching.
type Store struct {
	db *sql.DB

	// OnCommit reports batch commit latency for metrics. Optional.
	OnCommit func(n int, d time.Duration)
}

// New opens (or creates) the database with WAL mode and schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history open: %w", err)
	}

	// Single writer, matching the batched Run loop.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("history schema: %w", err)
	}

	log.Printf("[history] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT    NOT NULL,
			tf     INTEGER NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS layouts (
			name       TEXT PRIMARY KEY,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Run reads bar events from evCh and persists confirmed bars in batched
// transactions. Flushes every batch-size bars OR every flush delay,
// whichever first. Blocks until ctx is cancelled or evCh is closed.
func (s *Store) Run(ctx context.Context, evCh <-chan model.BarEvent) {
	type row struct {
		symbol string
		tf     int
		c      model.Candle
	}
	batch := make([]row, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		tx, err := s.db.Begin()
		if err != nil {
			log.Printf("[history] begin: %v", err)
			batch = batch[:0]
			return
		}
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO candles (symbol, tf, ts, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			tx.Rollback()
			log.Printf("[history] prepare: %v", err)
			batch = batch[:0]
			return
		}
		for _, r := range batch {
			if _, err := stmt.Exec(r.symbol, r.tf, r.c.Time, r.c.Open, r.c.High, r.c.Low, r.c.Close, r.c.Volume); err != nil {
				stmt.Close()
				tx.Rollback()
				log.Printf("[history] insert: %v", err)
				batch = batch[:0]
				return
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			log.Printf("[history] commit: %v", err)
		} else if s.OnCommit != nil {
			s.OnCommit(len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-evCh:
			if !ok {
				flush()
				return
			}
			if ev.Kind != model.BarConfirmed {
				continue
			}
			batch = append(batch, row{symbol: ev.Symbol, tf: ev.Timeframe, c: ev.Payload})
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// LoadCandles returns up to limit most recent candles for symbol+tf in
// ascending time order, marked Historical. limit <= 0 loads everything.
func (s *Store) LoadCandles(symbol string, tf, limit int) ([]model.Candle, error) {
	q := `
		SELECT ts, open, high, low, close, volume FROM (
			SELECT ts, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND tf = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(q, symbol, tf, limit)
	if err != nil {
		return nil, fmt.Errorf("history query candles: %w", err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		var vol sql.NullFloat64
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &vol); err != nil {
			return nil, fmt.Errorf("history scan candle: %w", err)
		}
		c.Volume = vol.Float64
		c.State = model.Historical
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastTimestamp returns the newest stored candle time for symbol+tf, 0 when
// none exist.
func (s *Store) LastTimestamp(symbol string, tf int) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND tf = ?`,
		symbol, tf,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveLayout upserts a named chart layout blob (JSON from the reconciler).
func (s *Store) SaveLayout(name string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO layouts (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("history save layout: %w", err)
	}
	return nil
}

// LoadLayout returns the stored layout blob, nil when absent.
func (s *Store) LoadLayout(name string) ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM layouts WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history load layout: %w", err)
	}
	return []byte(data), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
