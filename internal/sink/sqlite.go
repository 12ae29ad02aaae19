package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

// SQLiteStore implements DocumentStore using modernc.org/sqlite, one JSON
// text row per record.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens the database at dsn and ensures the table exists.
func NewSQLite(ctx context.Context, dsn, table string) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: set busy timeout")
	}
	s := &SQLiteStore{db: db, table: pgx.Identifier{table}.Sanitize()}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the append-only record table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	record      TEXT NOT NULL,
	inserted_at DATETIME NOT NULL DEFAULT (datetime('now'))
)`, s.table)
	_, err := s.db.ExecContext(ctx, ddl)
	return eris.Wrap(err, "sqlite: migrate")
}

// Name implements DocumentStore.
func (s *SQLiteStore) Name() string { return "sqlite" }

// InsertRecord implements DocumentStore.
func (s *SQLiteStore) InsertRecord(ctx context.Context, rec campaign.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, campaign_id, record, inserted_at) VALUES (?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), rec.CampaignID(), string(doc), time.Now().UTC()); err != nil {
		return eris.Wrap(err, "sqlite: insert record")
	}
	return nil
}

// Close implements DocumentStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
