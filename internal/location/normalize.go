// Package location maps free-text locations onto canonical country buckets.
package location

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vbonduro/mahrfyi/internal/domain"
)

// DefaultFuzzyThreshold is the minimum similarity (exclusive) for a fuzzy match.
const DefaultFuzzyThreshold = 0.7

type Method string

const (
	MethodAlias    Method = "alias"
	MethodFuzzy    Method = "fuzzy"
	MethodKeyword  Method = "keyword"
	MethodFallback Method = "fallback"
	MethodGeocoder Method = "geocoder"
)

type Result struct {
	Canonical   string              `json:"canonical"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	Method      Method              `json:"method"`
	Score       float64             `json:"score"`
}

// Resolved reports whether the input landed in a known bucket.
func (r Result) Resolved() bool {
	return r.Canonical != "" && r.Method != MethodFallback
}

type candidate struct {
	squashed string
	place    int
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	tables     *Tables
	threshold  float64
	candidates []candidate
	dice       *metrics.SorensenDice
}

type Option func(*Normalizer)

func WithThreshold(threshold float64) Option {
	return func(n *Normalizer) { n.threshold = threshold }
}

func NewNormalizer(tables *Tables, opts ...Option) *Normalizer {
	n := &Normalizer{
		tables:    tables,
		threshold: DefaultFuzzyThreshold,
		dice:      metrics.NewSorensenDice(),
	}
	for _, opt := range opts {
		opt(n)
	}
	for i, p := range tables.places {
		n.candidates = append(n.candidates, candidate{squashed: squash(Clean(p.Name)), place: i})
		for _, m := range p.match {
			n.candidates = append(n.candidates, candidate{squashed: squash(m), place: i})
		}
	}
	return n
}

func (n *Normalizer) Tables() *Tables {
	return n.tables
}

// Normalize never fails. Inputs that match nothing come back title-cased with
// MethodFallback; blank input yields an empty canonical.
func (n *Normalizer) Normalize(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Method: MethodFallback}
	}

	// Punctuation-only input cleans to nothing and skips matching.
	if cleaned := Clean(raw); cleaned != "" {
		if name, ok := n.tables.aliases[cleaned]; ok {
			return n.result(n.tables.byName[name], MethodAlias, 1)
		}
		if idx, score := n.bestMatch(squash(cleaned)); idx >= 0 && score > n.threshold {
			return n.result(idx, MethodFuzzy, score)
		}
	}

	return Result{Canonical: TitleCase(raw), Method: MethodFallback}
}

func (n *Normalizer) result(place int, method Method, score float64) Result {
	p := n.tables.places[place]
	return Result{Canonical: p.Name, Coordinates: p.Coordinates, Method: method, Score: score}
}

// bestMatch returns the place with the highest similarity; the earliest
// candidate wins ties.
func (n *Normalizer) bestMatch(input string) (int, float64) {
	best, bestScore := -1, 0.0
	for _, c := range n.candidates {
		if s := n.similarity(input, c.squashed); s > bestScore {
			best, bestScore = c.place, s
		}
	}
	return best, bestScore
}

// similarity is the Sorensen-Dice coefficient over character bigrams.
// Strings shorter than one bigram only match themselves.
func (n *Normalizer) similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len([]rune(a)) < 2 || len([]rune(b)) < 2 {
		return 0
	}
	return n.dice.Compare(a, b)
}

// Clean lowercases, trims, strips periods, commas and diacritics, and
// collapses internal whitespace.
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	s = stripAccents(s)
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase uppercases the first letter of each whitespace-separated word and
// lowercases the rest of it. Hyphens and apostrophes do not start a new word.
func TitleCase(raw string) string {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return ""
	}
	upper, lower := cases.Upper(language.Und), cases.Lower(language.Und)
	for i, w := range words {
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + lower.String(w[size:])
	}
	return strings.Join(words, " ")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
