package models

import "time"

// Queue item statuses. A failed item stays failed until an operator
// re-queues it explicitly.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

const (
	PublishStatusDraft     = "draft"
	PublishStatusPublished = "published"
)

type Manga struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	NormalizedTitle  string    `json:"-"`
	AlternativeNames []string  `json:"alternativeNames,omitempty"`
	Summary          *string   `json:"summary,omitempty"`
	Genres           []string  `json:"genres,omitempty"`
	Author           *string   `json:"author,omitempty"`
	Artist           *string   `json:"artist,omitempty"`
	Status           *string   `json:"status,omitempty"`
	ReleaseYear      *int      `json:"releaseYear,omitempty"`
	SourceKey        string    `json:"sourceKey"`
	SourceURL        *string   `json:"sourceUrl,omitempty"`
	CoverURL         *string   `json:"coverUrl,omitempty"`
	PublishStatus    string    `json:"publishStatus"`
	Rating           *float64  `json:"rating,omitempty"`
	ViewCount        int64     `json:"viewCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Chapter struct {
	ID        int64     `json:"id"`
	MangaID   int64     `json:"mangaId"`
	Number    float64   `json:"number"`
	Title     *string   `json:"title,omitempty"`
	Images    []string  `json:"images,omitempty"`
	IsLocked  bool      `json:"isLocked"`
	TokenCost int       `json:"tokenCost"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QueueItem tracks one import attempt. Ref is the opaque identifier handed
// to callers; the numeric ID stays internal to the store.
type QueueItem struct {
	ID           int64     `json:"-"`
	Ref          string    `json:"ref"`
	SourceKey    string    `json:"sourceKey"`
	MangaURL     string    `json:"mangaUrl"`
	MangaID      *int64    `json:"mangaId,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	RetryCount   int       `json:"retryCount"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Source struct {
	ID           int64     `json:"id"`
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	SitePriority int       `json:"sitePriority"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
