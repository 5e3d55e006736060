// Package testutil starts the backing services used by integration and e2e
// tests, and builds small PDF fixtures.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	qdrantImage   = "qdrant/qdrant:v1.12.4"
	rustfsImage   = "rustfs/rustfs:latest"

	// RustFSCredential is both the access key and the secret of the RustFS container.
	RustFSCredential = "rustfsadmin"

	pgCredential = "guardian"
)

// Service is a started container and the host:port its main port is mapped to.
type Service struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// Endpoint returns the service's base URL over plain HTTP.
func (s *Service) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", s.Host, s.Port)
}

// Terminate stops and removes the container.
func (s *Service) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(s.Container)
}

func startService(ctx context.Context, t *testing.T, name string, req testcontainers.ContainerRequest) *Service {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", name, err)
	}

	// Endpoint resolves the first exposed port as host:port.
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("%s container endpoint: %v", name, err)
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		t.Fatalf("%s container endpoint %q: %v", name, endpoint, err)
	}

	return &Service{Container: container, Host: host, Port: port}
}

// PostgresContainer is a pgvector-enabled PostgreSQL server.
type PostgresContainer struct {
	*Service
}

// NewPostgresContainer starts PostgreSQL with the pgvector extension available.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	svc := startService(ctx, t, "postgres", testcontainers.ContainerRequest{
		Image:        pgvectorImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	})
	return &PostgresContainer{Service: svc}
}

// ConnectionString returns a DSN for the container's database.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgCredential, pgCredential, pc.Host, pc.Port, pgCredential)
}

// QdrantContainer is a Qdrant server with its REST port exposed.
type QdrantContainer struct {
	*Service
}

// NewQdrantContainer starts Qdrant and waits for /readyz.
func NewQdrantContainer(ctx context.Context, t *testing.T) *QdrantContainer {
	svc := startService(ctx, t, "qdrant", testcontainers.ContainerRequest{
		Image:        qdrantImage,
		ExposedPorts: []string{"6333/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6333/tcp"),
			wait.ForHTTP("/readyz").WithPort("6333/tcp"),
		).WithStartupTimeout(60 * time.Second),
	})
	return &QdrantContainer{Service: svc}
}

// RustFSContainer is an S3-compatible object store.
type RustFSContainer struct {
	*Service
}

// NewRustFSContainer starts RustFS with RustFSCredential as its key pair.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	svc := startService(ctx, t, "rustfs", testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSCredential,
			"RUSTFS_SECRET_KEY": RustFSCredential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	})
	return &RustFSContainer{Service: svc}
}

// NewTestPool connects to pc, retrying while the server finishes booting, and
// applies the migrations found in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var (
		pool *pgxpool.Pool
		err  error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.New(ctx, pc.ConnectionString())
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}

	if err := MigrateUp(pc.ConnectionString(), migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("migrate test database: %v", err)
	}
	return pool
}

// MigrateUp applies every pending migration in dir through golang-migrate,
// the same path guardiand uses at startup.
func MigrateUp(databaseURL, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+abs, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
