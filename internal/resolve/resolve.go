package resolve

import (
	"github.com/radustef/mangapipe/internal/models"
)

type DecisionKind int

const (
	Insert DecisionKind = iota
	UpdateOverwrite
	Skip
)

func (k DecisionKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case UpdateOverwrite:
		return "update_overwrite"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind       DecisionKind
	ExistingID int64
}

// PriorityFunc maps a source key to its site priority; unknown sources must
// return a low-priority sentinel.
type PriorityFunc func(sourceKey string) int

// Resolve decides what to do with a candidate given the existing catalog
// entry under the same normalized title key (nil when there is none).
// A strictly better (lower) source priority overwrites; equal or worse
// skips, so the first writer wins among peers and outcomes are
// deterministic regardless of import order timing.
func Resolve(candidate models.Manga, existing *models.Manga, priority PriorityFunc) Decision {
	if existing == nil {
		return Decision{Kind: Insert}
	}

	candidatePriority := priority(candidate.SourceKey)
	existingPriority := priority(existing.SourceKey)

	if candidatePriority < existingPriority {
		return Decision{Kind: UpdateOverwrite, ExistingID: existing.ID}
	}
	return Decision{Kind: Skip, ExistingID: existing.ID}
}

// Merge applies an UpdateOverwrite: provenance and content fields come from
// the candidate, user-facing state (rating, view count, publish status) and
// identity stay with the existing record. The existing title is kept as the
// canonical one; a differing candidate title joins the alternative names.
func Merge(existing models.Manga, candidate models.Manga) models.Manga {
	merged := existing

	merged.SourceKey = candidate.SourceKey
	merged.SourceURL = candidate.SourceURL
	if candidate.CoverURL != nil {
		merged.CoverURL = candidate.CoverURL
	}
	if len(candidate.Genres) > 0 {
		merged.Genres = candidate.Genres
	}
	if candidate.Status != nil {
		merged.Status = candidate.Status
	}
	if candidate.Summary != nil {
		merged.Summary = candidate.Summary
	}
	if candidate.Author != nil && merged.Author == nil {
		merged.Author = candidate.Author
	}
	if candidate.Artist != nil && merged.Artist == nil {
		merged.Artist = candidate.Artist
	}
	if candidate.ReleaseYear != nil && merged.ReleaseYear == nil {
		merged.ReleaseYear = candidate.ReleaseYear
	}

	merged.AlternativeNames = unionNames(existing.AlternativeNames, candidate.AlternativeNames)
	if candidate.Title != "" && candidate.Title != existing.Title {
		merged.AlternativeNames = unionNames(merged.AlternativeNames, []string{candidate.Title})
	}

	return merged
}

func unionNames(base []string, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
