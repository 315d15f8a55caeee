package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tickerize/internal"
)

// timestampLayout matches sqlite's CURRENT_TIMESTAMP.
const timestampLayout = "2006-01-02 15:04:05"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection; one connection keeps them in effect for
	// every statement.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA busy_timeout = 5000;`} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS tickers (
  position INTEGER PRIMARY KEY,
  company TEXT NOT NULL UNIQUE,
  ticker TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickers_ticker ON tickers(ticker);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  input TEXT NOT NULL,
  output TEXT NOT NULL,
  countsJson TEXT NOT NULL DEFAULT '{}',
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT
);

CREATE TABLE IF NOT EXISTS annotations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  idx INTEGER NOT NULL,
  headline TEXT NOT NULL,
  status TEXT NOT NULL,
  orgParse TEXT,
  orgChangeMade INTEGER NOT NULL DEFAULT 0,
  orgSubObjParse TEXT,
  orgSubObjChangeMade INTEGER NOT NULL DEFAULT 0,
  UNIQUE(runId, idx),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS tag_cache (
  key TEXT PRIMARY KEY,
  tokensJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceTickers swaps the stored catalog for entries, keeping their order.
func (d *DB) ReplaceTickers(entries []internal.TickerEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM tickers`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO tickers (position, company, ticker) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.Company, e.Ticker); err != nil {
			return fmt.Errorf("insert ticker %q: %w", e.Company, err)
		}
	}

	return tx.Commit()
}

func (d *DB) ListTickers() ([]internal.TickerEntry, error) {
	rows, err := d.conn.Query(`SELECT company, ticker FROM tickers ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.TickerEntry{}
	for rows.Next() {
		var e internal.TickerEntry
		if err := rows.Scan(&e.Company, &e.Ticker); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordRun stores a completed run and its per-record results in one
// transaction, so a run is listed only once all of it is stored.
func (d *DB) RecordRun(id, input, output string, startedAt time.Time, counts internal.RunCounts, results []internal.RecordResult) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO runs (id, input, output, countsJson, startedAt, finishedAt)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
`, id, input, output, string(countsJSON), startedAt.UTC().Format(timestampLayout)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO annotations (runId, idx, headline, status, orgParse, orgChangeMade, orgSubObjParse, orgSubObjChangeMade)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(runId, idx) DO UPDATE SET
  headline=excluded.headline,
  status=excluded.status,
  orgParse=excluded.orgParse,
  orgChangeMade=excluded.orgChangeMade,
  orgSubObjParse=excluded.orgSubObjParse,
  orgSubObjChangeMade=excluded.orgSubObjChangeMade
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(id, r.Index, r.Headline, string(r.Status), r.OrgParse, r.OrgChangeMade, r.OrgSubObjParse, r.OrgSubObjChangeMade); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, input, output, countsJson, startedAt, finishedAt
FROM runs ORDER BY startedAt DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(id string) (*internal.RunRow, error) {
	row, err := scanRun(d.conn.QueryRow(`
SELECT id, input, output, countsJson, startedAt, finishedAt
FROM runs WHERE id = ?
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustRun(id string) (internal.RunRow, error) {
	row, err := d.GetRun(id)
	if err != nil {
		return internal.RunRow{}, err
	}
	if row == nil {
		return internal.RunRow{}, fmt.Errorf("run not found: %s", id)
	}
	return *row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (internal.RunRow, error) {
	var row internal.RunRow
	var countsJSON string
	if err := s.Scan(&row.ID, &row.Input, &row.Output, &countsJSON, &row.StartedAt, &row.FinishedAt); err != nil {
		return internal.RunRow{}, err
	}
	_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
	return row, nil
}

func (d *DB) GetExportRows(runID string) ([]internal.AnnotationExportRow, error) {
	rows, err := d.conn.Query(`
SELECT idx, headline, status, orgParse, orgChangeMade, orgSubObjParse, orgSubObjChangeMade
FROM annotations
WHERE runId = ?
ORDER BY idx ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AnnotationExportRow
	for rows.Next() {
		var row internal.AnnotationExportRow
		if err := rows.Scan(
			&row.Index,
			&row.Headline,
			&row.Status,
			&row.OrgParse,
			&row.OrgChangeMade,
			&row.OrgSubObjParse,
			&row.OrgSubObjChangeMade,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetTaggedTokens returns the cached tagging for key, or nil when absent.
func (d *DB) GetTaggedTokens(key string) ([]internal.TaggedToken, error) {
	var blob string
	err := d.conn.QueryRow(`SELECT tokensJson FROM tag_cache WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tokens []internal.TaggedToken
	if err := json.Unmarshal([]byte(blob), &tokens); err != nil {
		return nil, fmt.Errorf("decode tag cache %s: %w", key, err)
	}
	return tokens, nil
}

func (d *DB) PutTaggedTokens(key string, tokens []internal.TaggedToken) error {
	blob, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO tag_cache (key, tokensJson) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET tokensJson = excluded.tokensJson, createdAt = CURRENT_TIMESTAMP
`, key, string(blob))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
