// migrate applies the API key schema. Migrations are embedded in the binary;
// -path reads them from disk instead.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/migrations"
)

func main() {
	command := flag.String("direction", "up", "up, down, version or force")
	steps := flag.Int("steps", 0, "number of steps for up/down (0 = all)")
	forceVersion := flag.Int("force-version", -1, "version to record with -direction force")
	dbURL := flag.String("db-url", "", "database URL (default: DATABASE_URL or DB_* variables)")
	dir := flag.String("path", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dsn := *dbURL
	if dsn == "" {
		dsn = config.DatabaseDSNFromEnv()
	}

	m, err := newMigrator(*dir, dsn)
	if err != nil {
		logger.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := run(m, *command, *steps, *forceVersion); err != nil {
		logger.Error("migration failed", "direction", *command, "error", err)
		os.Exit(1)
	}

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("no migrations applied")
	case err != nil:
		logger.Error("failed to read schema version", "error", err)
		os.Exit(1)
	default:
		fmt.Printf("schema version %d (dirty: %v)\n", v, dirty)
	}
}

func newMigrator(dir, dsn string) (*migrate.Migrate, error) {
	if dir != "" {
		return migrate.New("file://"+dir, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

func run(m *migrate.Migrate, command string, steps, forceVersion int) error {
	var err error
	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		return nil
	case "force":
		if forceVersion < 0 {
			return errors.New("-direction force needs -force-version")
		}
		err = m.Force(forceVersion)
	default:
		return fmt.Errorf("unknown direction %q", command)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
