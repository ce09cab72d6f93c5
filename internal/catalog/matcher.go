// Package catalog resolves free-text item mentions against a menu snapshot.
// Matching is pure: no I/O, no mutation, deterministic for a given catalog.
package catalog

import (
	"regexp"
	"strings"

	"dinewire/internal/domain"
)

// Match is one resolved clause: a menu item, the quantity the text asked
// for, and a confidence score in (0, 1].
type Match struct {
	Item       domain.MenuItem
	Quantity   int
	Confidence float64
}

// Result carries every resolved clause plus the clauses that matched
// nothing. Unresolved clauses are surfaced, never silently dropped or
// fabricated into items.
type Result struct {
	Matches    []Match
	Unresolved []string
}

// minOverlap is the minimum token-overlap score for the fallback matcher.
const minOverlap = 0.5

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var stopwords = map[string]bool{
	"of": true, "the": true, "please": true, "some": true, "with": true,
	"order": true, "add": true, "get": true, "me": true, "i": true,
	"want": true, "like": true, "would": true,
}

var clauseSplit = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)

// MatchText resolves every clause of text against the catalog. Clauses are
// split on commas and "and" and matched independently.
func MatchText(text string, items []domain.MenuItem) Result {
	var res Result
	for _, clause := range clauseSplit.Split(strings.TrimSpace(text), -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		m, ok := matchClause(clause, items)
		if ok {
			res.Matches = append(res.Matches, m)
		} else {
			res.Unresolved = append(res.Unresolved, clause)
		}
	}
	return res
}

func matchClause(clause string, items []domain.MenuItem) (Match, bool) {
	qty, phrase := extractQuantity(clause)
	if phrase == "" {
		return Match{}, false
	}

	// Exact containment first: the phrase names the item or the item name
	// appears inside the phrase.
	lowered := strings.ToLower(phrase)
	for _, it := range items {
		name := strings.ToLower(it.Name)
		if strings.Contains(lowered, name) || strings.Contains(name, lowered) {
			return Match{Item: it, Quantity: qty, Confidence: 1.0}, true
		}
	}

	// Token-overlap fallback.
	phraseTokens := normalize(tokens(phrase))
	best := Match{}
	for _, it := range items {
		score := overlap(phraseTokens, normalize(tokens(it.Name)))
		if score >= minOverlap && score > best.Confidence {
			best = Match{Item: it, Quantity: qty, Confidence: score}
		}
	}
	if best.Confidence > 0 {
		return best, true
	}
	return Match{}, false
}

// extractQuantity pulls the quantity cue out of a clause: the first numeric
// or number-word token wins, and the item phrase is what follows it (or
// precedes it for trailing counts). No cue means quantity 1.
func extractQuantity(clause string) (int, string) {
	toks := tokens(clause)
	for i, t := range toks {
		if n, ok := parseQuantity(t); ok {
			rest := toks[i+1:]
			if len(rest) == 0 {
				rest = toks[:i]
			}
			return n, strings.Join(dropStopwords(rest), " ")
		}
	}
	return 1, strings.Join(dropStopwords(toks), " ")
}

func parseQuantity(tok string) (int, bool) {
	if n, ok := numberWords[strings.ToLower(tok)]; ok {
		return n, true
	}
	n := 0
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n > 0 {
		return n, true
	}
	return 0, false
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

func dropStopwords(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if !stopwords[strings.ToLower(t)] {
			out = append(out, t)
		}
	}
	return out
}

// normalize lowercases and strips a plural "s" so "naans" still overlaps
// "Naan".
func normalize(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		t = strings.ToLower(t)
		if len(t) > 3 && strings.HasSuffix(t, "s") {
			t = strings.TrimSuffix(t, "s")
		}
		out = append(out, t)
	}
	return out
}

// overlap scores how much of the item name is covered by the phrase.
func overlap(phrase, name []string) float64 {
	if len(name) == 0 {
		return 0
	}
	set := make(map[string]bool, len(phrase))
	for _, t := range phrase {
		set[t] = true
	}
	hits := 0
	for _, t := range name {
		if set[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(name))
}
