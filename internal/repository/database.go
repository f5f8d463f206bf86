package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/RomanNihal/HackTheAI-FInal/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Open connects to the database selected by cfg.Driver.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = NewPostgresDB(cfg.URL, logger)
	case config.DriverSQLite:
		db, err = NewSQLiteDB(cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return db, nil
}

// NewPostgresDB establishes a new connection to the PostgreSQL database.
func NewPostgresDB(dataSourceName string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect(config.DriverPostgres, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logger.Info("Successfully connected to the database!", zap.String("driver", config.DriverPostgres))
	return db, nil
}

// NewSQLiteDB opens (creating if needed) a SQLite database with foreign keys enforced.
func NewSQLiteDB(path string, logger *zap.Logger) (*sqlx.DB, error) {
	if !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(config.DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// An in-memory database lives only as long as its single connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	logger.Info("Successfully connected to the database!",
		zap.String("driver", config.DriverSQLite),
		zap.String("path", path))
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// MigrateDB brings the schema up to date. It is safe to run on every start.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	m, release, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("couldn't read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	logger.Info("Database migration was run successfully", zap.Uint("version", version))
	return nil
}

// RollbackDB reverts the given number of migrations.
func RollbackDB(db *sqlx.DB, steps int, logger *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, release, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't roll back database migration: %w", err)
	}

	logger.Info("Database rollback was run successfully", zap.Int("steps", steps))
	return nil
}

// SchemaVersion returns the applied migration version; ok is false on an empty database.
func SchemaVersion(db *sqlx.DB) (version uint, dirty bool, ok bool, err error) {
	m, release, err := newMigrate(db)
	if err != nil {
		return 0, false, false, err
	}
	defer release()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("couldn't read schema version: %w", err)
	}
	return version, dirty, true, nil
}

// newMigrate binds the embedded migrations for the db's dialect. The returned release func must be
// called instead of m.Close, which would close the shared *sql.DB.
func newMigrate(db *sqlx.DB) (*migrate.Migrate, func(), error) {
	dialect := db.DriverName()

	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't load migrations for %s: %w", dialect, err)
	}

	release := func() {}
	var driver database.Driver
	switch dialect {
	case config.DriverPostgres:
		conn, err := db.Conn(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't get database connection for running migrations: %w", err)
		}
		driver, err = postgres.WithConnection(context.Background(), conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("couldn't get database instance for running migrations: %w", err)
		}
		release = func() { conn.Close() }
	case config.DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't get database instance for running migrations: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	return m, release, nil
}
