package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

const defaultTable = "measurement_histories"

// driverNames maps configured drivers to database/sql registrations.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
}

type historyRow struct {
	UserName  string    `db:"user_name"`
	Records   string    `db:"records"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLStore keeps one row per user holding the JSON-encoded history.
type SQLStore struct {
	db     *sqlx.DB
	table  string
	logger logger.Logger
}

// OpenSQLStore connects with driver ("sqlite" or "postgres") and ensures the
// history table exists.
func OpenSQLStore(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStore, error) {
	name, ok := driverNames[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDriver, driver)
	}
	db, err := sqlx.ConnectContext(ctx, name, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLStore(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open connection and migrates the schema.
func NewSQLStore(ctx context.Context, db *sqlx.DB, opts ...SQLOption) (*SQLStore, error) {
	s := &SQLStore{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	user_name  TEXT PRIMARY KEY,
	records    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Load returns user's history. A missing row is an empty history.
func (s *SQLStore) Load(ctx context.Context, user string) ([]model.Record, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryLoadLatency(backendSQL, metrics.SinceMs(start)) }()

	query, args, err := sqlx.Named(
		fmt.Sprintf(`SELECT records FROM %s WHERE user_name = :user_name`, s.table),
		map[string]interface{}{"user_name": user},
	)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var stored string
	if err := s.db.GetContext(ctx, &stored, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []model.Record{}, nil
		}
		return nil, err
	}

	var records []model.Record
	if err := json.Unmarshal([]byte(stored), &records); err != nil {
		return nil, fmt.Errorf("%w: user %q: %w", ErrCorrupt, user, err)
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

// Write upserts user's whole history inside a transaction.
func (s *SQLStore) Write(ctx context.Context, user string, records []model.Record) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(backendSQL, metrics.SinceMs(start)) }()

	if records == nil {
		records = []model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}

	row := historyRow{UserName: user, Records: string(data), UpdatedAt: time.Now().UTC()}
	query, args, err := sqlx.Named(fmt.Sprintf(`INSERT INTO %s (user_name, records, updated_at)
VALUES (:user_name, :records, :updated_at)
ON CONFLICT (user_name) DO UPDATE SET records = excluded.records, updated_at = excluded.updated_at`, s.table), row)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Debug(ctx, "history upserted",
			logger.String("user", user),
			logger.Int("records", len(records)),
		)
	}
	return nil
}

// Users lists every user with a stored history.
func (s *SQLStore) Users(ctx context.Context) ([]string, error) {
	var users []string
	query := fmt.Sprintf(`SELECT user_name FROM %s ORDER BY user_name`, s.table)
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
