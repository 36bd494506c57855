package db

import (
	"embed"
	"fmt"
	"log"
	"sort"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate applies the embedded SQL migrations that are not yet recorded in
// the migrations ledger. Files run in lexical order, each inside its own
// transaction together with its ledger row, so a failed migration leaves no
// trace and a rerun picks up exactly where the last run stopped.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.Exec(`
create table if not exists migrations (
    name text primary key,
    applied_at timestamptz not null default now()
)`).Error; err != nil {
		return fmt.Errorf("ensure migrations ledger: %w", err)
	}

	var applied []string
	if err := gdb.Raw(`select name from migrations`).Scan(&applied).Error; err != nil {
		return fmt.Errorf("read migrations ledger: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		if done[name] {
			continue
		}
		contents, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = gdb.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(contents)).Error; err != nil {
				return fmt.Errorf("execute migration %s: %w", name, err)
			}
			if err := tx.Exec(`insert into migrations (name) values (?)`, name).Error; err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Printf("applied migration %s", name)
	}

	return nil
}

func migrationNames() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
