package store

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kkyouma/myanimelist-scraper/internal/db"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// PostgresStore implements RecordStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	dest    string
}

// NewPostgres creates a PostgresStore with a small connection pool. The
// scraper saves once per run, so a handful of connections is plenty.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, dest: redact(connString)}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         BIGINT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	stats_url  TEXT NOT NULL,
	rank       INTEGER NOT NULL,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	scraped_at TIMESTAMPTZ,
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS save_runs (
	id         UUID PRIMARY KEY,
	saved      INTEGER NOT NULL,
	total      INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_kind_rank ON records(kind, rank);
`

var recordColumns = []string{"id", "kind", "name", "url", "stats_url", "rank", "fields", "scraped_at"}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// MergeAndSave stages records with COPY and upserts them in one
// transaction, then logs the save in save_runs.
func (s *PostgresStore) MergeAndSave(ctx context.Context, records []model.Record) (int, error) {
	incoming := Merge(nil, records)
	rows := make([][]any, 0, len(incoming))
	for _, r := range incoming {
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return 0, failure(s.dest, "encode", err)
		}
		var scrapedAt any
		if !r.ScrapedAt.IsZero() {
			scrapedAt = r.ScrapedAt.UTC()
		}
		rows = append(rows, []any{r.ID, string(r.Kind), r.Name, r.URL, r.StatsURL, int32(r.Rank), fields, scrapedAt})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, failure(s.dest, "begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "records",
		Columns:      recordColumns,
		ConflictKeys: []string{"kind", "id"},
	}, rows); err != nil {
		return 0, failure(s.dest, "upsert", err)
	}

	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM records`).Scan(&total); err != nil {
		return 0, failure(s.dest, "count", err)
	}

	runID := uuid.New()
	if _, err := tx.Exec(ctx,
		`INSERT INTO save_runs (id, saved, total, created_at) VALUES ($1, $2, $3, $4)`,
		runID, len(incoming), total, time.Now().UTC(),
	); err != nil {
		return 0, failure(s.dest, "log save", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, failure(s.dest, "commit", err)
	}

	zap.L().Info("store: saved records",
		zap.String("destination", s.dest),
		zap.String("save_run", runID.String()),
		zap.Int("incoming", len(incoming)),
		zap.Int64("total", total),
	)
	return int(total), nil
}

// Load returns every stored record ordered by ID then kind.
func (s *PostgresStore) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, name, url, stats_url, rank, fields, scraped_at FROM records ORDER BY id, kind`,
	)
	if err != nil {
		return nil, failure(s.dest, "load", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var (
			r         model.Record
			kind      string
			fields    []byte
			scrapedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &kind, &r.Name, &r.URL, &r.StatsURL, &r.Rank, &fields, &scrapedAt); err != nil {
			return nil, failure(s.dest, "scan", err)
		}
		r.Kind = model.MediaType(kind)
		if scrapedAt.Valid {
			r.ScrapedAt = scrapedAt.Time.UTC()
		}
		if r.Fields, err = decodeFields(fields); err != nil {
			return nil, failure(s.dest, "decode", eris.Wrapf(err, "record %d", r.ID))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, failure(s.dest, "load", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// redact hides the password of a connection URL for logs and errors.
func redact(connString string) string {
	u, err := url.Parse(connString)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}
