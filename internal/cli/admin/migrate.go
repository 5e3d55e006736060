package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/guardian/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const defaultMigrationsPath = "file://migrations"

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending migrations to the pgvector database and print the schema version",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	cmd.Flags().String("path", defaultMigrationsPath, "Migrations source URL")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.VectorBackend != config.BackendPGVector {
		return fmt.Errorf("migrations apply to the pgvector backend only (GUARDIAN_VECTOR_BACKEND=%s)", cfg.VectorBackend)
	}

	path, _ := cmd.Flags().GetString("path")
	version, err := applyMigrations(cfg.DatabaseURL, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}

func runMigrations(databaseURL, path string) error {
	_, err := applyMigrations(databaseURL, path)
	return err
}

func applyMigrations(databaseURL, path string) (uint, error) {
	if path == "" {
		path = defaultMigrationsPath
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("migrations: no migrations found")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}
	return version, nil
}
