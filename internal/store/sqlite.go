package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// SQLiteStore implements RecordStore using modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, path: dsn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         INTEGER NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	stats_url  TEXT NOT NULL,
	rank       INTEGER NOT NULL,
	fields     TEXT NOT NULL,
	scraped_at TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS save_runs (
	id         TEXT PRIMARY KEY,
	saved      INTEGER NOT NULL,
	total      INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_kind_rank ON records(kind, rank);
`

const sqliteUpsert = `
INSERT INTO records (id, kind, name, url, stats_url, rank, fields, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(kind, id) DO UPDATE SET
	name = excluded.name,
	url = excluded.url,
	stats_url = excluded.stats_url,
	rank = excluded.rank,
	fields = excluded.fields,
	scraped_at = excluded.scraped_at`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MergeAndSave upserts records in one transaction and logs the save in
// save_runs. A failed save leaves the previous state untouched.
func (s *SQLiteStore) MergeAndSave(ctx context.Context, records []model.Record) (int, error) {
	incoming := Merge(nil, records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, failure(s.path, "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, failure(s.path, "prepare", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range incoming {
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return 0, failure(s.path, "encode", err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, string(r.Kind), r.Name, r.URL, r.StatsURL, r.Rank, fields, formatTime(r.ScrapedAt),
		); err != nil {
			return 0, failure(s.path, "upsert", eris.Wrapf(err, "record %d", r.ID))
		}
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&total); err != nil {
		return 0, failure(s.path, "count", err)
	}

	runID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO save_runs (id, saved, total, created_at) VALUES (?, ?, ?, ?)`,
		runID, len(incoming), total, formatTime(time.Now()),
	); err != nil {
		return 0, failure(s.path, "log save", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, failure(s.path, "commit", err)
	}

	zap.L().Info("store: saved records",
		zap.String("path", s.path),
		zap.String("save_run", runID),
		zap.Int("incoming", len(incoming)),
		zap.Int("total", total),
	)
	return total, nil
}

// Load returns every stored record ordered by ID then kind.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, url, stats_url, rank, fields, scraped_at FROM records ORDER BY id, kind`,
	)
	if err != nil {
		return nil, failure(s.path, "load", err)
	}
	defer rows.Close() //nolint:errcheck

	records := []model.Record{}
	for rows.Next() {
		var (
			r         model.Record
			kind      string
			fields    string
			scrapedAt string
		)
		if err := rows.Scan(&r.ID, &kind, &r.Name, &r.URL, &r.StatsURL, &r.Rank, &fields, &scrapedAt); err != nil {
			return nil, failure(s.path, "scan", err)
		}
		r.Kind = model.MediaType(kind)
		if r.Fields, err = decodeFields([]byte(fields)); err != nil {
			return nil, failure(s.path, "decode", eris.Wrapf(err, "record %d", r.ID))
		}
		if r.ScrapedAt, err = parseTime(scrapedAt); err != nil {
			return nil, failure(s.path, "decode", eris.Wrapf(err, "record %d", r.ID))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, failure(s.path, "load", err)
	}
	return records, nil
}

func encodeFields(f model.Fields) (string, error) {
	if f == nil {
		f = model.Fields{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", eris.Wrap(err, "marshal fields")
	}
	return string(data), nil
}

func decodeFields(data []byte) (model.Fields, error) {
	f := model.Fields{}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "unmarshal fields")
	}
	if f == nil {
		f = model.Fields{}
	}
	return f, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
