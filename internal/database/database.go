package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Required by the library implementation.
)

// Writers queue on the busy timeout; immediate transactions take the write lock
// up front so concurrent replaces cannot deadlock.
const connParams = "_busy_timeout=5000&_txlock=immediate"

type Database struct {
	db     *sql.DB
	dbPath string
	log    *slog.Logger
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// New opens the SQLite file and installs the cache table if needed.
func New(ctx context.Context, dbPath string, log *slog.Logger) (*Database, error) {
	dbFile, err := sql.Open("sqlite3", withConnParams(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}

	d := &Database{db: dbFile, dbPath: dbPath, log: log}

	m, err := d.migrator()
	if err != nil {
		_ = dbFile.Close()

		return nil, err
	}

	migrateErr := m.Up()

	version, dirty, versionErr := m.Version()
	fields := []any{
		"dbPath", dbPath,
	}

	if versionErr == nil {
		fields = append(fields, "version", version, "dirty", dirty)
	} else if !errors.Is(versionErr, migrate.ErrNilVersion) {
		log.WarnContext(ctx, "Failed to fetch migration version",
			"error", versionErr,
			"dbPath", dbPath)
	}

	if migrateErr != nil {
		if !errors.Is(migrateErr, migrate.ErrNoChange) {
			_ = dbFile.Close()

			return nil, fmt.Errorf("apply migrations: %w", migrateErr)
		}

		log.InfoContext(ctx, "No migrations to apply", fields...)
	} else {
		log.InfoContext(ctx, "DB is migrated", fields...)
	}

	return d, nil
}

// Uninstall drops the cache table by running every down migration.
func (d *Database) Uninstall(ctx context.Context) error {
	m, err := d.migrator()
	if err != nil {
		return err
	}

	if err = m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}

	d.log.InfoContext(ctx, "DB is uninstalled",
		"dbPath", d.dbPath)

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) migrator() (*migrate.Migrate, error) {
	dbInstance, err := sqlite3.WithInstance(d.db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("create DB instance: %w", err)
	}

	srcInstance, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create source instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return m, nil
}

func withConnParams(dbPath string) string {
	if strings.Contains(dbPath, "_busy_timeout") {
		return dbPath
	}

	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connParams
	}

	return "file:" + dbPath + "?" + connParams
}
