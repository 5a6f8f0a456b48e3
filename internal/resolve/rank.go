package resolve

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/radustef/mangapipe/internal/scrape"
)

// RankResults orders search results by fuzzy closeness to the query.
// Results the matcher rejects outright keep their site order and go last;
// sites already sort by their own relevance, so that order is worth keeping
// as the fallback. Titles themselves are not modified.
func RankResults(query string, results []scrape.SearchResult) []scrape.SearchResult {
	if len(results) < 2 {
		return results
	}

	titles := make([]string, len(results))
	for i, result := range results {
		titles[i] = result.Title
	}

	distances := make(map[int]int, len(results))
	for _, rank := range fuzzy.RankFindNormalizedFold(query, titles) {
		distances[rank.OriginalIndex] = rank.Distance
	}

	indexes := make([]int, len(results))
	for i := range indexes {
		indexes[i] = i
	}

	sort.SliceStable(indexes, func(a, b int) bool {
		da, aMatched := distances[indexes[a]]
		db, bMatched := distances[indexes[b]]
		if aMatched != bMatched {
			return aMatched
		}
		return da < db
	})

	ordered := make([]scrape.SearchResult, 0, len(results))
	for _, i := range indexes {
		ordered = append(ordered, results[i])
	}
	return ordered
}
