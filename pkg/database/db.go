package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const connectionTimeout = 10 * time.Second

// newMigrate is swapped in tests.
var newMigrate = migrate.NewWithInstance

// DB wraps the database connection and provides additional functionality
type DB struct {
	*sqlx.DB
	logger *zap.Logger
}

// NewDB opens and pings a Postgres connection pool.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is empty")
	}

	logger.Info("Connecting to database")

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w, and failed to close connection: %w", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Serverless hosts keep few instances warm; the pool stays small.
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("Successfully connected to database")

	return &DB{
		DB:     sqlx.NewDb(sqlDB, "postgres"),
		logger: logger,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded migrations.
func (db *DB) RunMigrations() error {
	db.logger.Info("Running database migrations")

	m, err := db.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		db.logger.Warn("Could not get migration version", zap.Error(err))
	} else {
		db.logger.Info("Migration completed",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty))
	}
	return nil
}

// RollbackMigrations rolls back the given number of migration steps.
func (db *DB) RollbackMigrations(steps int) error {
	db.logger.Info("Rolling back database migrations", zap.Int("steps", steps))

	m, err := db.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	// A dedicated connection keeps m.Close from closing the shared pool.
	ctx := context.Background()
	conn, err := db.DB.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := newMigrate("iofs", source, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}
