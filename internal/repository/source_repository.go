package repository

import (
	"database/sql"
	"fmt"

	"github.com/radustef/mangapipe/internal/models"
)

type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, key, name, kind, site_priority, enabled, created_at, updated_at`

func (r *SourceRepository) List() ([]models.Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY site_priority ASC, key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	items := make([]models.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return items, nil
}

func (r *SourceRepository) GetByKey(key string) (*models.Source, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE key = ?`, key)
	source, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get source by key: %w", err)
	}
	return source, nil
}

// DisabledKeys returns the keys operators have switched off. Adapters with
// no sources row (e.g. yaml adapters that were never seeded) count as
// enabled.
func (r *SourceRepository) DisabledKeys() (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT key FROM sources WHERE enabled = 0`)
	if err != nil {
		return nil, fmt.Errorf("list disabled sources: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan disabled source: %w", err)
		}
		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disabled sources: %w", err)
	}

	return keys, nil
}

func (r *SourceRepository) SetEnabled(key string, enabled bool) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE sources
		SET enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE key = ?
	`, enabled, key)
	if err != nil {
		return false, fmt.Errorf("set source %s enabled: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set source enabled rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanSource(row rowScanner) (*models.Source, error) {
	var source models.Source
	err := row.Scan(
		&source.ID,
		&source.Key,
		&source.Name,
		&source.Kind,
		&source.SitePriority,
		&source.Enabled,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return &source, nil
}
