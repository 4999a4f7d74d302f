package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// schema is applied on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id         BIGINT PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_sessions (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		identity_id BIGINT NOT NULL,
		name        VARCHAR(255) NOT NULL,
		date        DATE NOT NULL,
		time_in     DATETIME(6) NOT NULL,
		time_out    DATETIME(6) NULL,
		last_event  DATETIME(6) NOT NULL,
		INDEX idx_identity_date (identity_id, date, id),
		INDEX idx_recent (date, time_in),
		CONSTRAINT fk_sessions_identity FOREIGN KEY (identity_id) REFERENCES identities(id)
	)`,
}

// NewPool creates a new MariaDB connection pool.
// The DSN is forced to parse DATE/DATETIME columns into time.Time in UTC.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// EnsureSchema creates the attendance tables if they do not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
