package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// openStore connects to the configured attendance store backend.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.Database.Backend {
	case "", "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required")
		}
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		fmt.Printf("Using PostgreSQL backend\n")
		return postgres.NewStore(pool), nil
	case "mariadb", "mysql":
		if cfg.Database.MariaDBDSN == "" {
			return nil, errors.New("MARIADB_DSN environment variable is required")
		}
		fmt.Printf("Connecting to MariaDB database...\n")
		pool, err := mariadb.NewPool(cfg.Database.MariaDBDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		if err := pool.EnsureSchema(ctx); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to initialize MariaDB schema: %w", err)
		}
		fmt.Printf("Using MariaDB backend\n")
		return mariadb.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (expected postgres or mariadb)", cfg.Database.Backend)
	}
}
