// Package normalizer turns free-form exercise names entered by content
// authors into canonical search phrases for the upstream exercise database.
package normalizer

import (
	"regexp"
	"strings"
)

// SynonymTable maps app-specific exercise names to upstream-friendly search
// phrases. Keys are matched after lowercasing, abbreviation expansion and
// whitespace collapsing. This is the main tuning surface for resolution
// quality and is meant to be edited as data, not code.
type SynonymTable map[string]string

var (
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)
	dumbbellAbbrRe  = regexp.MustCompile(`\bdb\b`)
	barbellAbbrRe   = regexp.MustCompile(`\bbb\b`)
)

// Normalizer produces canonical search phrases. Safe for concurrent use;
// the synonym table is not mutated after construction.
type Normalizer struct {
	synonyms SynonymTable
}

// New builds a Normalizer over the given synonym table. Keys are normalized
// on the way in so lookups are insensitive to casing and spacing of the
// configured entries. A nil table falls back to DefaultSynonyms.
func New(table SynonymTable) *Normalizer {
	if table == nil {
		table = DefaultSynonyms
	}
	indexed := make(SynonymTable, len(table))
	for k, v := range table {
		indexed[collapse(strings.ToLower(k))] = v
	}
	return &Normalizer{synonyms: indexed}
}

// Normalize maps a raw exercise name to its canonical search phrase.
// Pure and total: it always returns a string, at minimum a lowercased,
// trimmed, whitespace-collapsed version of the input.
func (n *Normalizer) Normalize(raw string) string {
	phrase := strings.ToLower(strings.TrimSpace(raw))

	// Drop parenthetical qualifiers like "(each side)"
	phrase = parentheticalRe.ReplaceAllString(phrase, " ")

	// Expand common abbreviations on word boundaries
	phrase = dumbbellAbbrRe.ReplaceAllString(phrase, "dumbbell")
	phrase = barbellAbbrRe.ReplaceAllString(phrase, "barbell")

	phrase = collapse(phrase)

	if mapped, ok := n.synonyms[phrase]; ok {
		return mapped
	}

	// Retry the lookup with a trailing plural stripped. The stripped form
	// is also what we return when unmapped, so Normalize is idempotent.
	if singular := stripPlural(phrase); singular != phrase {
		if mapped, ok := n.synonyms[singular]; ok {
			return mapped
		}
		return singular
	}

	return phrase
}

// collapse squeezes internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripPlural removes a trailing "s" only when it follows at least two
// letters and the word does not end in "ss" ("press" stays "press").
func stripPlural(phrase string) string {
	n := len(phrase)
	if n < 3 || phrase[n-1] != 's' || phrase[n-2] == 's' {
		return phrase
	}
	if !isLetter(phrase[n-2]) || !isLetter(phrase[n-3]) {
		return phrase
	}
	return phrase[:n-1]
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
