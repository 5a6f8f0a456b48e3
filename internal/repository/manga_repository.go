package repository

import (
	"database/sql"
	"fmt"

	"github.com/radustef/mangapipe/internal/models"
)

type MangaRepository struct {
	db *sql.DB
}

func NewMangaRepository(db *sql.DB) *MangaRepository {
	return &MangaRepository{db: db}
}

const mangaColumns = `
	id, title, normalized_title, alternative_names, summary, genres, author, artist,
	status, release_year, source_key, source_url, cover_url, publish_status,
	rating, view_count, created_at, updated_at
`

func (r *MangaRepository) Create(manga *models.Manga) (*models.Manga, error) {
	altNames, err := marshalStrings(manga.AlternativeNames)
	if err != nil {
		return nil, err
	}
	genres, err := marshalStrings(manga.Genres)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec(`
		INSERT INTO manga (
			title, normalized_title, alternative_names, summary, genres, author, artist,
			status, release_year, source_key, source_url, cover_url, publish_status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		manga.Title,
		manga.NormalizedTitle,
		altNames,
		nullableString(manga.Summary),
		genres,
		nullableString(manga.Author),
		nullableString(manga.Artist),
		nullableString(manga.Status),
		nullableInt(manga.ReleaseYear),
		manga.SourceKey,
		nullableString(manga.SourceURL),
		nullableString(manga.CoverURL),
		manga.PublishStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("insert manga: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get manga last insert id: %w", err)
	}

	return r.GetByID(id)
}

func (r *MangaRepository) GetByID(id int64) (*models.Manga, error) {
	row := r.db.QueryRow(`SELECT `+mangaColumns+` FROM manga WHERE id = ?`, id)
	manga, err := scanManga(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get manga by id: %w", err)
	}
	return manga, nil
}

func (r *MangaRepository) FindBySourceURL(sourceURL string) (*models.Manga, error) {
	row := r.db.QueryRow(`SELECT `+mangaColumns+` FROM manga WHERE source_url = ?`, sourceURL)
	manga, err := scanManga(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find manga by source url: %w", err)
	}
	return manga, nil
}

// FindByNormalizedTitle matches on the stored resolver key. Alternative
// name collisions are not looked up here; the resolver key is the single
// duplicate-detection axis.
func (r *MangaRepository) FindByNormalizedTitle(key string) (*models.Manga, error) {
	row := r.db.QueryRow(`
		SELECT `+mangaColumns+`
		FROM manga
		WHERE normalized_title = ?
		ORDER BY id ASC
		LIMIT 1
	`, key)
	manga, err := scanManga(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find manga by normalized title: %w", err)
	}
	return manga, nil
}

// Update rewrites the mutable columns from the given record. Callers are
// expected to pass a record derived from the stored row (see
// resolve.Merge), so user-facing fields carry their preserved values.
func (r *MangaRepository) Update(id int64, manga *models.Manga) error {
	altNames, err := marshalStrings(manga.AlternativeNames)
	if err != nil {
		return err
	}
	genres, err := marshalStrings(manga.Genres)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE manga
		SET
			title = ?,
			normalized_title = ?,
			alternative_names = ?,
			summary = ?,
			genres = ?,
			author = ?,
			artist = ?,
			status = ?,
			release_year = ?,
			source_key = ?,
			source_url = ?,
			cover_url = ?,
			publish_status = ?,
			rating = ?,
			view_count = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		manga.Title,
		manga.NormalizedTitle,
		altNames,
		nullableString(manga.Summary),
		genres,
		nullableString(manga.Author),
		nullableString(manga.Artist),
		nullableString(manga.Status),
		nullableInt(manga.ReleaseYear),
		manga.SourceKey,
		nullableString(manga.SourceURL),
		nullableString(manga.CoverURL),
		manga.PublishStatus,
		nullableFloat(manga.Rating),
		manga.ViewCount,
		id,
	)
	if err != nil {
		return fmt.Errorf("update manga: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManga(row rowScanner) (*models.Manga, error) {
	var manga models.Manga
	var altNames, summary, author, artist, status, sourceURL, coverURL, genres sql.NullString
	var releaseYear sql.NullInt64
	var rating sql.NullFloat64

	err := row.Scan(
		&manga.ID,
		&manga.Title,
		&manga.NormalizedTitle,
		&altNames,
		&summary,
		&genres,
		&author,
		&artist,
		&status,
		&releaseYear,
		&manga.SourceKey,
		&sourceURL,
		&coverURL,
		&manga.PublishStatus,
		&rating,
		&manga.ViewCount,
		&manga.CreatedAt,
		&manga.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if manga.AlternativeNames, err = unmarshalStrings(altNames); err != nil {
		return nil, err
	}
	if manga.Genres, err = unmarshalStrings(genres); err != nil {
		return nil, err
	}
	manga.Summary = stringPtr(summary)
	manga.Author = stringPtr(author)
	manga.Artist = stringPtr(artist)
	manga.Status = stringPtr(status)
	manga.SourceURL = stringPtr(sourceURL)
	manga.CoverURL = stringPtr(coverURL)
	manga.ReleaseYear = intPtr(releaseYear)
	manga.Rating = floatPtr(rating)

	return &manga, nil
}
