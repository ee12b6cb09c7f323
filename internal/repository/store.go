package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"metrics-dashboard/internal/domain"
)

const defaultConnectTimeout = 10 * time.Second

var ErrNotInitialized = errors.New("store is not initialized")

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	driver      string
	schema      []string
	insert      string
	insertAt    string
	returningID bool
	selectAll   string
	selectSince string
	truncate    []string
	truncateTx  bool
	// timeArg renders a stored timestamp for binding. nil binds the time.Time as is.
	timeArg     func(time.Time) interface{}
}

func (d dialect) bindTime(ts time.Time) interface{} {
	if d.timeArg != nil {
		return d.timeArg(ts.UTC())
	}
	return ts.UTC()
}

// SQLStore implements domain.MetricStore on database/sql. Every operation runs on a
// connection acquired for that call and released before it returns.
type SQLStore struct {
	db             *sql.DB
	dsn            string
	dialect        dialect
	connectTimeout time.Duration
}

func newSQLStore(d dialect, dsn string, connectTimeout time.Duration) *SQLStore {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	return &SQLStore{dsn: dsn, dialect: d, connectTimeout: connectTimeout}
}

// NewSQLStore returns a store for one of the supported drivers: sqlite3, mysql or postgres.
func NewSQLStore(driver, dsn string, connectTimeout time.Duration) (*SQLStore, error) {
	switch driver {
	case sqliteDialect.driver:
		return newSQLStore(sqliteDialect, dsn, connectTimeout), nil
	case mysqlDialect.driver:
		return newSQLStore(mysqlDialect, dsn, connectTimeout), nil
	case postgresDialect.driver:
		return newSQLStore(postgresDialect, dsn, connectTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (s *SQLStore) Driver() string {
	return s.dialect.driver
}

func (s *SQLStore) Init() error {
	var err error

	s.db, err = sql.Open(s.dialect.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
	defer cancel()

	if err = s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		s.db = nil
		return fmt.Errorf("error connecting to database: %w", err)
	}

	for _, stmt := range s.dialect.schema {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			_ = s.db.Close()
			s.db = nil
			return fmt.Errorf("error creating table: %w", err)
		}
	}
	return nil
}

// acquire bounds only the wait for a connection by connectTimeout; statements run under ctx.
func (s *SQLStore) acquire(ctx context.Context) (*sql.Conn, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	connCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	conn, err := s.db.Conn(connCtx)
	if err != nil {
		return nil, fmt.Errorf("error acquiring connection: %w", err)
	}
	return conn, nil
}

func (s *SQLStore) AddMetric(ctx context.Context, metric domain.Metric) (int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	query := s.dialect.insert
	args := []interface{}{metric.Value}
	if !metric.Timestamp.IsZero() {
		query = s.dialect.insertAt
		args = append(args, s.dialect.bindTime(metric.Timestamp))
	}

	if s.dialect.returningID {
		var id int64
		if err := conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("error inserting metric: %w", err)
		}
		return id, nil
	}

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error inserting metric: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading inserted id: %w", err)
	}
	return id, nil
}

func (s *SQLStore) GetMetrics(ctx context.Context, since *time.Time) ([]domain.Metric, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := s.dialect.selectAll
	var args []interface{}
	if since != nil {
		query = s.dialect.selectSince
		args = append(args, since.UTC())
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	fetchedMetrics := make([]domain.Metric, 0)

	for rows.Next() {
		var m domain.Metric

		if err := rows.Scan(&m.ID, &m.Value, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		fetchedMetrics = append(fetchedMetrics, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return fetchedMetrics, nil
}

// Truncate removes every reading and restarts the id sequence.
func (s *SQLStore) Truncate(ctx context.Context) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !s.dialect.truncateTx {
		for _, stmt := range s.dialect.truncate {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("error truncating metrics: %w", err)
			}
		}
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting truncate: %w", err)
	}
	for _, stmt := range s.dialect.truncate {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("error truncating metrics: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing truncate: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("error pinging database: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
