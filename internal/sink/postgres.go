package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mailercloud-sync/internal/campaign"
)

// DefaultTable is the table used by the SQL document stores.
const DefaultTable = "campaign_records"

// pgPool is the subset of *pgxpool.Pool the store needs; pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore implements DocumentStore with one JSONB row per record.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgres opens a pool on connString and ensures the table exists.
func NewPostgres(ctx context.Context, connString, table string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	s := newPostgresStore(pool, table)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresStore(pool pgPool, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// Migrate creates the append-only record table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          UUID PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	record      JSONB NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Name implements DocumentStore.
func (s *PostgresStore) Name() string { return "postgres" }

// InsertRecord implements DocumentStore.
func (s *PostgresStore) InsertRecord(ctx context.Context, rec campaign.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, campaign_id, record, inserted_at) VALUES ($1, $2, $3, $4)`, s.table)
	if _, err := s.pool.Exec(ctx, query, uuid.NewString(), rec.CampaignID(), string(doc), time.Now().UTC()); err != nil {
		return eris.Wrap(err, "postgres: insert record")
	}
	return nil
}

// Close implements DocumentStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
