package database

import (
	"database/sql"
	"fmt"
)

// SeedDefaults mirrors the built-in adapter set into the sources table so
// operators can see and disable them. Priorities here are the tie-breaking
// order for duplicate titles, lower value = preferred.
func SeedDefaults(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}

	defaultSources := []struct {
		key      string
		name     string
		kind     string
		priority int
	}{
		{key: "mangadex", name: "MangaDex", kind: "metadata", priority: 1},
		{key: "asurascans", name: "Asura Scans", kind: "content", priority: 2},
		{key: "manganelo", name: "Manganelo", kind: "content", priority: 3},
	}

	for _, source := range defaultSources {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO sources (key, name, kind, site_priority, enabled)
			VALUES (?, ?, ?, ?, 1)
		`, source.key, source.name, source.kind, source.priority)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("seed source %s: %w", source.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
