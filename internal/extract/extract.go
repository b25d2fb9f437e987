// Package extract holds the five domain extractors (personal data, legal
// documents, identity documents, contracts, business documents). Each
// extractor combines its own regex rule tables with the shared recognizer
// candidates and, when present, entities from the external NER collaborator.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/docvars/extracteur/internal/recognize"
	"github.com/docvars/extracteur/internal/structure"
)

// Kind identifies one of the known extractors.
type Kind string

const (
	KindPersonal Kind = "personal_data"
	KindLegal    Kind = "legal_data"
	KindIdentity Kind = "identity_data"
	KindContract Kind = "contract_data"
	KindBusiness Kind = "business_data"
)

// ImageMeta carries the coarse image measurements forwarded by the OCR
// collaborator for scanned inputs. Only identity-document detection uses it,
// and only as a last-resort fallback.
type ImageMeta struct {
	AspectRatio   float64
	DominantColor string // "blue", "green", ...
}

// Document is the per-analysis input shared by every extractor: normalized
// text plus the derived structure, the recognizer candidates and the
// optional NER entities.
type Document struct {
	Text       string
	SourcePath string
	LocaleHint string
	Structure  *structure.Structure
	Candidates []recognize.Candidate
	Entities   []Entity
	Image      *ImageMeta
}

// FieldGroup is the named nested mapping produced by one extractor.
type FieldGroup struct {
	Name   Kind
	Fields map[string]any
}

// Extractor is the capability implemented by the five domain extractors.
// Extract must not panic across the boundary; the Set recovers and logs.
type Extractor interface {
	Kind() Kind
	Extract(doc *Document) (FieldGroup, error)
}

// Set runs all extractors with per-extractor failure isolation.
type Set struct {
	extractors []Extractor
	logger     *slog.Logger
}

func NewSet(logger *slog.Logger, extractors ...Extractor) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{extractors: extractors, logger: logger}
}

// ExtractAll returns the field groups of every extractor that succeeded. A
// failing or panicking extractor is logged and omitted; the others still run.
func (s *Set) ExtractAll(doc *Document) []FieldGroup {
	groups := make([]FieldGroup, 0, len(s.extractors))
	for _, ex := range s.extractors {
		fg, err := s.runOne(ex, doc)
		if err != nil {
			s.logger.Warn("extract.failed", "extractor", string(ex.Kind()), "error", err)
			continue
		}
		groups = append(groups, fg)
	}
	return groups
}

func (s *Set) runOne(ex Extractor, doc *Document) (fg FieldGroup, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", ex.Kind(), r)
		}
	}()
	return ex.Extract(doc)
}

// --- shared field helpers ---

// fillIfEmpty writes val under key only when the key is absent or holds an
// empty value. NER-sourced values go through this so that a regex hit is
// never overridden.
func fillIfEmpty(m map[string]any, key string, val any) {
	if isEmptyValue(val) {
		return
	}
	if existing, ok := m[key]; ok && !isEmptyValue(existing) {
		return
	}
	m[key] = val
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// firstGroup returns the first capture group of the first match, trimmed.
func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil && len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// allGroups returns the first capture group of every match.
func allGroups(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 {
			if v := strings.TrimSpace(m[1]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// bestCandidate returns the highest-confidence candidate of the given type,
// optionally restricted to an identifier kind.
func bestCandidate(cands []recognize.Candidate, typ recognize.Type, idKind string) (recognize.Candidate, bool) {
	var best recognize.Candidate
	found := false
	for _, c := range cands {
		if c.Type != typ {
			continue
		}
		if idKind != "" && recognize.KindOf(c) != idKind {
			continue
		}
		if !found || c.Confidence > best.Confidence {
			best, found = c, true
		}
	}
	return best, found
}

// fillConfidence computes the weighted share of filled fields in a sub-map.
func fillConfidence(m map[string]any, weights map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var got, total float64
	for key, w := range weights {
		total += w
		if v, ok := m[key]; ok && !isEmptyValue(v) {
			got += w
		}
	}
	if total == 0 {
		return 0
	}
	score := got / total
	if score > 1 {
		score = 1
	}
	return score
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func pruneEmpty(m map[string]any) map[string]any {
	for k, v := range m {
		if isEmptyValue(v) {
			delete(m, k)
		}
	}
	return m
}
