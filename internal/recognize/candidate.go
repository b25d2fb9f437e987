// Package recognize holds the locale-aware pattern recognizers for phone
// numbers, person names, postal addresses and official identifiers. Each
// recognizer scans text independently of the document domain and yields
// typed, confidence-scored candidates.
package recognize

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Type tags a candidate's value kind.
type Type string

const (
	TypePhone      Type = "phone"
	TypeName       Type = "name"
	TypeAddress    Type = "address"
	TypeIdentifier Type = "identifier"
	TypeDate       Type = "date"
	TypeAmount     Type = "amount"
	TypeEmail      Type = "email"
)

// Candidate is a single typed extraction hit. Candidates live only within
// one analysis call and are never persisted.
type Candidate struct {
	Type            Type
	RawValue        string
	NormalizedValue string
	Locale          string // country code or "" when unknown
	Confidence      float64
	SourcePatternID string
	Context         string
}

// pattern tier base scores. Explicit labels remove ambiguity and rank
// highest; generic catch-alls rank lowest. The tier order is also the
// dedupe tie-break: at equal confidence the earlier-produced (higher-tier)
// candidate survives.
const (
	baseExplicit = 0.88
	baseLocale   = 0.72
	baseGeneric  = 0.55

	bonusContextKeyword = 0.10
	bonusLengthInBounds = 0.05

	dedupeSimilarity = 0.8
	contextWindow    = 40
)

func clamp(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// contextAround returns the bounded-width text window around [start,end).
func contextAround(text string, start, end int) string {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	to := end + contextWindow
	if to > len(text) {
		to = len(text)
	}
	// avoid splitting UTF-8 sequences at the window edges
	for from > 0 && from < len(text) && !isRuneStart(text[from]) {
		from--
	}
	for to < len(text) && !isRuneStart(text[to]) {
		to++
	}
	return text[from:to]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

var similarityParams = levenshtein.NewParams()

// Dedupe drops the lower-confidence candidate of any same-type pair whose
// normalized values match or whose string similarity reaches the 0.8
// threshold. Input order is the tie-break, so callers emit candidates in
// descending tier order.
func Dedupe(cands []Candidate) []Candidate {
	// stable sort by confidence keeps tier order for equal scores
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []Candidate
	for _, c := range sorted {
		dup := false
		for _, k := range kept {
			if k.Type != c.Type {
				continue
			}
			if sameValue(k.NormalizedValue, c.NormalizedValue) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

func sameValue(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	return levenshtein.Similarity(a, b, similarityParams) >= dedupeSimilarity
}
