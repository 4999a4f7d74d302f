//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	before, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(before) == 0 {
		t.Fatal("Expected applied migrations after setup")
	}

	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
	after, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("Expected %d migrations after rerun, got %d", len(before), len(after))
	}
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	t.Run("UpsertAndGet", func(t *testing.T) {
		if err := repo.UpsertIdentity(ctx, 7, "Alice"); err != nil {
			t.Fatalf("Failed to upsert identity: %v", err)
		}

		got, err := repo.GetIdentity(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got == nil {
			t.Fatal("Expected identity, got nil")
		}
		if got.Name != "Alice" {
			t.Errorf("Expected name 'Alice', got '%s'", got.Name)
		}
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		if err := repo.UpsertIdentity(ctx, 7, "Alice Smith"); err != nil {
			t.Fatalf("Failed to upsert identity: %v", err)
		}

		got, err := repo.GetIdentity(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got.Name != "Alice Smith" {
			t.Errorf("Expected name 'Alice Smith', got '%s'", got.Name)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		got, err := repo.GetIdentity(ctx, 999)
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing identity, got %+v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := repo.UpsertIdentity(ctx, 3, "Bob"); err != nil {
			t.Fatalf("Failed to upsert identity: %v", err)
		}

		identities, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(identities) != 2 {
			t.Fatalf("Expected 2 identities, got %d", len(identities))
		}
		if identities[0].ID != 3 || identities[1].ID != 7 {
			t.Errorf("Expected identities ordered by ID, got %d, %d", identities[0].ID, identities[1].ID)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	identities := NewIdentityRepository(pool)
	repo := NewSessionRepository(pool)

	if err := identities.UpsertIdentity(ctx, 7, "Alice"); err != nil {
		t.Fatalf("Failed to upsert identity: %v", err)
	}

	nineAM := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var sessionID int64

	t.Run("InsertAndGetLatest", func(t *testing.T) {
		s, err := repo.InsertSession(ctx, 7, "Alice", "2026-03-02", nineAM)
		if err != nil {
			t.Fatalf("Failed to insert session: %v", err)
		}
		sessionID = s.ID

		got, err := repo.GetLatestSession(ctx, 7, "2026-03-02")
		if err != nil {
			t.Fatalf("Failed to get latest session: %v", err)
		}
		if got == nil {
			t.Fatal("Expected session, got nil")
		}
		if got.Date != "2026-03-02" {
			t.Errorf("Expected date '2026-03-02', got '%s'", got.Date)
		}
		if !got.TimeIn.Equal(nineAM) || !got.LastEvent.Equal(nineAM) {
			t.Errorf("Expected time-in and last event %v, got %v and %v", nineAM, got.TimeIn, got.LastEvent)
		}
		if !got.Open() {
			t.Error("Expected new session to be open")
		}
	})

	t.Run("OtherDateIsEmpty", func(t *testing.T) {
		got, err := repo.GetLatestSession(ctx, 7, "2026-03-03")
		if err != nil {
			t.Fatalf("Failed to get latest session: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for another date, got %+v", got)
		}
	})

	t.Run("Close", func(t *testing.T) {
		out := nineAM.Add(8 * time.Hour)
		if err := repo.CloseSession(ctx, sessionID, out); err != nil {
			t.Fatalf("Failed to close session: %v", err)
		}

		got, err := repo.GetLatestSession(ctx, 7, "2026-03-02")
		if err != nil {
			t.Fatalf("Failed to get latest session: %v", err)
		}
		if got.TimeOut == nil || !got.TimeOut.Equal(out) {
			t.Errorf("Expected time-out %v, got %v", out, got.TimeOut)
		}
		if !got.LastEvent.Equal(out) {
			t.Errorf("Expected last event %v, got %v", out, got.LastEvent)
		}
	})

	t.Run("CloseTwiceFails", func(t *testing.T) {
		err := repo.CloseSession(ctx, sessionID, nineAM.Add(9*time.Hour))
		if !errors.Is(err, database.ErrSessionNotOpen) {
			t.Errorf("Expected ErrSessionNotOpen, got %v", err)
		}
	})

	t.Run("ListOrdering", func(t *testing.T) {
		if _, err := repo.InsertSession(ctx, 7, "Alice", "2026-03-02", nineAM.Add(10*time.Hour)); err != nil {
			t.Fatalf("Failed to insert session: %v", err)
		}
		if _, err := repo.InsertSession(ctx, 7, "Alice", "2026-03-01", nineAM.Add(-24*time.Hour)); err != nil {
			t.Fatalf("Failed to insert session: %v", err)
		}

		recent, err := repo.ListRecent(ctx, 2)
		if err != nil {
			t.Fatalf("Failed to list recent: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("Expected 2 sessions, got %d", len(recent))
		}
		if !recent[0].TimeIn.After(recent[1].TimeIn) || recent[0].Date != "2026-03-02" {
			t.Errorf("Expected newest session first, got %v then %v", recent[0].TimeIn, recent[1].TimeIn)
		}

		all, err := repo.ListForIdentity(ctx, 7)
		if err != nil {
			t.Fatalf("Failed to list for identity: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 sessions, got %d", len(all))
		}
		if all[2].Date != "2026-03-01" {
			t.Errorf("Expected oldest date last, got '%s'", all[2].Date)
		}
	})
}
