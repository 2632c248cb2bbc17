// Package matcher selects the best upstream candidate for a search phrase.
package matcher

import (
	"strings"

	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// SelectBest picks the candidate that best matches the search phrase.
// Returns nil only for an empty candidate list: when every candidate scores
// poorly we still return the first one, trusting the upstream's own
// relevance ordering as the tiebreak of last resort. Deterministic, no I/O.
func SelectBest(candidates []*types.ExerciseRecord, phrase string) *types.ExerciseRecord {
	if len(candidates) == 0 {
		return nil
	}

	search := strings.ToLower(strings.TrimSpace(phrase))
	searchWords := strings.Fields(search)

	// Exact name match short-circuits any heuristic scoring
	for _, c := range candidates {
		if strings.ToLower(c.Name) == search {
			return c
		}
	}

	best := candidates[0]
	bestScore := -1.0
	for _, c := range candidates {
		s := score(strings.ToLower(c.Name), search, searchWords)
		if s > bestScore {
			bestScore = s
			best = c
		}
	}

	// A weak best match is probably noise; fall back to the upstream's
	// first result rather than giving up on a non-empty result set.
	if bestScore <= 5 {
		return candidates[0]
	}
	return best
}

func score(name, search string, searchWords []string) float64 {
	var s float64

	if strings.HasPrefix(name, search) {
		s += 50
	}

	for _, w := range searchWords {
		if len(w) > 2 && strings.Contains(name, w) {
			s += 10
		}
	}

	nameWords := len(strings.Fields(name))
	if diff := nameWords - len(searchWords); diff >= -1 && diff <= 1 {
		s += 5
	}

	if strings.Contains(name, search) {
		s += 20
	}

	// Penalize large length mismatches, capped so it never dominates
	lenDiff := float64(len(name) - len(search))
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	penalty := lenDiff / 5
	if penalty > 10 {
		penalty = 10
	}
	s -= penalty

	return s
}
