package repository

import (
	"database/sql"
	"fmt"

	"github.com/radustef/mangapipe/internal/models"
)

type ChapterRepository struct {
	db *sql.DB
}

func NewChapterRepository(db *sql.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

func (r *ChapterRepository) Create(chapter *models.Chapter) (*models.Chapter, error) {
	images, err := marshalStrings(chapter.Images)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec(`
		INSERT INTO chapters (manga_id, number, title, images, is_locked, token_cost)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		chapter.MangaID,
		chapter.Number,
		nullableString(chapter.Title),
		images,
		chapter.IsLocked,
		chapter.TokenCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get chapter last insert id: %w", err)
	}

	return r.GetByID(id)
}

func (r *ChapterRepository) GetByID(id int64) (*models.Chapter, error) {
	row := r.db.QueryRow(`
		SELECT id, manga_id, number, title, images, is_locked, token_cost, created_at, updated_at
		FROM chapters
		WHERE id = ?
	`, id)
	chapter, err := scanChapter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter by id: %w", err)
	}
	return chapter, nil
}

func (r *ChapterRepository) GetByMangaAndNumber(mangaID int64, number float64) (*models.Chapter, error) {
	row := r.db.QueryRow(`
		SELECT id, manga_id, number, title, images, is_locked, token_cost, created_at, updated_at
		FROM chapters
		WHERE manga_id = ? AND number = ?
	`, mangaID, number)
	chapter, err := scanChapter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chapter by manga and number: %w", err)
	}
	return chapter, nil
}

func (r *ChapterRepository) ListByManga(mangaID int64) ([]models.Chapter, error) {
	rows, err := r.db.Query(`
		SELECT id, manga_id, number, title, images, is_locked, token_cost, created_at, updated_at
		FROM chapters
		WHERE manga_id = ?
		ORDER BY number ASC
	`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]models.Chapter, 0)
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, *chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}

	return chapters, nil
}

// ExistingNumbers returns the chapter numbers already stored for a manga,
// used to skip re-inserting chapters the catalog already has.
func (r *ChapterRepository) ExistingNumbers(mangaID int64) (map[float64]struct{}, error) {
	rows, err := r.db.Query(`SELECT number FROM chapters WHERE manga_id = ?`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("list chapter numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[float64]struct{})
	for rows.Next() {
		var number float64
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("scan chapter number: %w", err)
		}
		numbers[number] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapter numbers: %w", err)
	}

	return numbers, nil
}

// UpdateImages fills the lazily-populated page list for a chapter.
func (r *ChapterRepository) UpdateImages(id int64, imageURLs []string) error {
	images, err := marshalStrings(imageURLs)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE chapters
		SET images = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, images, id)
	if err != nil {
		return fmt.Errorf("update chapter images: %w", err)
	}
	return nil
}

func scanChapter(row rowScanner) (*models.Chapter, error) {
	var chapter models.Chapter
	var title, images sql.NullString

	err := row.Scan(
		&chapter.ID,
		&chapter.MangaID,
		&chapter.Number,
		&title,
		&images,
		&chapter.IsLocked,
		&chapter.TokenCost,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	chapter.Title = stringPtr(title)
	if chapter.Images, err = unmarshalStrings(images); err != nil {
		return nil, err
	}

	return &chapter, nil
}
