package sqlite

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kestrel-data/driving.report/internal/monitoring"
)

//go:embed migrations
var migrationsFS embed.FS

// migrateUp applies all pending migrations from the embedded set. A database
// already at the latest version is not an error.
func (s *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// Closing m would close the underlying DB connection; let it be
	// garbage collected instead.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version and dirty state.
// A fresh database reports version 0.
func (s *Store) SchemaVersion() (uint, bool, error) {
	row := s.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`)
	var version uint
	var dirty int
	if err := row.Scan(&version, &dirty); err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	return version, dirty != 0, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
