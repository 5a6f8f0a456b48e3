package repository

import (
	"database/sql"
	"fmt"

	"github.com/radustef/mangapipe/internal/models"
)

type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

const queueColumns = `
	id, ref, source_key, manga_url, manga_id, status, error_message, retry_count, priority, created_at, updated_at
`

func (r *QueueRepository) Create(item *models.QueueItem) (*models.QueueItem, error) {
	result, err := r.db.Exec(`
		INSERT INTO scraper_queue (ref, source_key, manga_url, manga_id, status, priority)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.Ref,
		item.SourceKey,
		item.MangaURL,
		nullableInt64(item.MangaID),
		item.Status,
		item.Priority,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get queue last insert id: %w", err)
	}

	return r.GetByID(id)
}

func (r *QueueRepository) GetByID(id int64) (*models.QueueItem, error) {
	row := r.db.QueryRow(`SELECT `+queueColumns+` FROM scraper_queue WHERE id = ?`, id)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get queue item by id: %w", err)
	}
	return item, nil
}

func (r *QueueRepository) GetByRef(ref string) (*models.QueueItem, error) {
	row := r.db.QueryRow(`SELECT `+queueColumns+` FROM scraper_queue WHERE ref = ?`, ref)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get queue item by ref: %w", err)
	}
	return item, nil
}

func (r *QueueRepository) List(status string, limit int) ([]models.QueueItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + queueColumns + ` FROM scraper_queue`
	args := make([]any, 0, 2)
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY priority ASC, created_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	items := make([]models.QueueItem, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}

	return items, nil
}

func (r *QueueRepository) CountByStatus(status string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scraper_queue WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count queue items by status: %w", err)
	}
	return count, nil
}

// Claim moves an item from pending to processing. The guard on status
// makes the claim atomic: of two concurrent claimers exactly one sees a
// row change.
func (r *QueueRepository) Claim(id int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE scraper_queue
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, models.QueueStatusProcessing, id, models.QueueStatusPending)
	if err != nil {
		return false, fmt.Errorf("claim queue item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim queue item rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClaimNext finds the oldest pending item by priority and claims it.
// Returns nil when the queue has no pending work.
func (r *QueueRepository) ClaimNext() (*models.QueueItem, error) {
	for {
		var id int64
		err := r.db.QueryRow(`
			SELECT id FROM scraper_queue
			WHERE status = ?
			ORDER BY priority ASC, created_at ASC, id ASC
			LIMIT 1
		`, models.QueueStatusPending).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find next pending queue item: %w", err)
		}

		claimed, err := r.Claim(id)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// Lost the race for this row; try the next candidate.
			continue
		}
		return r.GetByID(id)
	}
}

func (r *QueueRepository) MarkCompleted(id int64, mangaID *int64) error {
	_, err := r.db.Exec(`
		UPDATE scraper_queue
		SET status = ?, manga_id = COALESCE(?, manga_id), error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.QueueStatusCompleted, nullableInt64(mangaID), id)
	if err != nil {
		return fmt.Errorf("mark queue item completed: %w", err)
	}
	return nil
}

func (r *QueueRepository) MarkFailed(id int64, message string) error {
	_, err := r.db.Exec(`
		UPDATE scraper_queue
		SET status = ?, error_message = ?, retry_count = retry_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.QueueStatusFailed, message, id)
	if err != nil {
		return fmt.Errorf("mark queue item failed: %w", err)
	}
	return nil
}

// Requeue puts a failed item back to pending. This is the explicit
// operator retry; failures are never re-queued automatically.
func (r *QueueRepository) Requeue(ref string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE scraper_queue
		SET status = ?, error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE ref = ? AND status = ?
	`, models.QueueStatusPending, ref, models.QueueStatusFailed)
	if err != nil {
		return false, fmt.Errorf("requeue queue item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("requeue rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanQueueItem(row rowScanner) (*models.QueueItem, error) {
	var item models.QueueItem
	var mangaID sql.NullInt64
	var errorMessage sql.NullString

	err := row.Scan(
		&item.ID,
		&item.Ref,
		&item.SourceKey,
		&item.MangaURL,
		&mangaID,
		&item.Status,
		&errorMessage,
		&item.RetryCount,
		&item.Priority,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.MangaID = int64Ptr(mangaID)
	item.ErrorMessage = stringPtr(errorMessage)

	return &item, nil
}
