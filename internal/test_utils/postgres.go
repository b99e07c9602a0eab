package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/crewplan/timeline/internal/config"
	"github.com/crewplan/timeline/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const snapshotName = "timeline-test-snapshot"

// PostgresDB is a migrated Postgres container shared by the tests of one package.
type PostgresDB struct {
	container *postgres.PostgresContainer
	cfg       config.Database
}

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	return postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase("timeline"),
		postgres.WithUsername("test_timeline"),
		postgres.WithPassword("test_timeline"),
		postgres.BasicWaitStrategies(),
	)
}

// StartPostgres starts a container, applies all migrations and snapshots the
// migrated state so every test can Restore to it.
func StartPostgres() (_ *PostgresDB, err error) {
	ctx := context.Background()

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	defer func() {
		if err != nil {
			_ = testcontainers.TerminateContainer(container)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, err
	}
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:   host,
		Port:   port.Int(),
		User:   "test_timeline",
		Pass:   "test_timeline",
		Name:   "timeline",
		Schema: "timeline",
	}

	if err := database.Migrate(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := container.Snapshot(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		return nil, fmt.Errorf("failed to snapshot postgres container: %w", err)
	}

	return &PostgresDB{container: container, cfg: cfg}, nil
}

// RunWithPostgres is a TestMain helper. When Docker is unavailable db is nil
// and database tests are expected to skip via Open.
func RunWithPostgres(m *testing.M, db **PostgresDB) int {
	pg, err := StartPostgres()
	if err != nil {
		log.Warnf("postgres unavailable, database tests will be skipped: %v", err)
	} else {
		*db = pg
		defer func() {
			if err := testcontainers.TerminateContainer(pg.container); err != nil {
				log.Errorf("failed to terminate container: %s", err)
			}
		}()
	}
	return m.Run()
}

// Open returns a pool on the migrated database. The database is restored to
// the migrated snapshot when the test finishes.
func (p *PostgresDB) Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if p == nil {
		t.Skip("postgres container not available")
	}
	pool, err := database.Open(p.cfg)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		if err := p.container.Restore(context.Background(), postgres.WithSnapshotName(snapshotName)); err != nil {
			t.Errorf("failed to restore snapshot: %v", err)
		}
	})
	return pool
}

// findProjectRoot walks up from the working directory to the directory holding go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
