package recognize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reNameLabel = regexp.MustCompile(`(?im)\b(?:nom complet|nom et prénom|nom|prénom|prenom)\s*:\s*([^\n]{2,60})`)
	reCivility  = regexp.MustCompile(`\b(?:M\.|Mr|Mme|Mlle|Monsieur|Madame|Mademoiselle|Dr|Me|Maître)\s+([\p{Lu}][\p{L}'\-]+(?:\s+(?:de|du|des|le|la|van|von|ben|el|al|ould|[\p{Lu}][\p{L}'\-]+)){0,4})`)
	// DUPONT Jean and Jean Dupont shapes
	reNameUpperFirst = regexp.MustCompile(`\b([\p{Lu}]{2,}(?:[\-'][\p{Lu}]{2,})*)\s+([\p{Lu}][\p{Ll}'\-]+)\b`)
	reNameGeneric    = regexp.MustCompile(`\b[\p{Lu}][\p{Ll}'\-]{2,}(?:\s+[\p{Lu}][\p{Ll}'\-]{2,}){1,3}\b`)
)

// particles stay lowercase inside a title-cased name.
var nameParticles = map[string]struct{}{
	"de": {}, "du": {}, "des": {}, "le": {}, "la": {}, "van": {}, "von": {},
	"ben": {}, "el": {}, "al": {}, "ould": {}, "da": {}, "di": {},
}

var nameContextKeywords = []string{
	"nom", "prénom", "monsieur", "madame", "mademoiselle", "soussigné",
	"représenté", "né le", "née le", "signataire", "client", "demandeur",
}

// words that start sentences or headings and masquerade as name parts.
var nameBlacklist = map[string]struct{}{
	"article": {}, "fait": {}, "page": {}, "monsieur": {}, "madame": {},
	"mademoiselle": {}, "société": {}, "sarl": {}, "entre": {}, "objet": {},
	"contrat": {}, "facture": {}, "devis": {}, "attestation": {}, "total": {},
	"montant": {}, "république": {}, "carte": {}, "nationale": {},
}

// NameRecognizer detects person names: labelled fields first, then civility
// prefixes, then capitalized-run catch-alls.
type NameRecognizer struct{}

func NewNameRecognizer() *NameRecognizer {
	return &NameRecognizer{}
}

func (r *NameRecognizer) Recognize(text, localeHint string) []Candidate {
	var cands []Candidate

	for _, m := range reNameLabel.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.TrimSpace(text[m[2]:m[3]])
		if !plausibleName(raw) {
			continue
		}
		cands = append(cands, r.candidate(text, raw, m[2], m[3], baseExplicit, "name.label"))
	}
	for _, m := range reCivility.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.TrimSpace(text[m[2]:m[3]])
		if !plausibleName(raw) {
			continue
		}
		cands = append(cands, r.candidate(text, raw, m[2], m[3], baseLocale, "name.civility"))
	}
	for _, m := range reNameUpperFirst.FindAllStringIndex(text, -1) {
		raw := strings.TrimSpace(text[m[0]:m[1]])
		if !plausibleName(raw) {
			continue
		}
		cands = append(cands, r.candidate(text, raw, m[0], m[1], baseLocale, "name.upper_first"))
	}
	for _, m := range reNameGeneric.FindAllStringIndex(text, -1) {
		raw := strings.TrimSpace(text[m[0]:m[1]])
		if !plausibleName(raw) {
			continue
		}
		cands = append(cands, r.candidate(text, raw, m[0], m[1], baseGeneric, "name.generic"))
	}

	return Dedupe(cands)
}

func (r *NameRecognizer) candidate(text, raw string, start, end int, base float64, patternID string) Candidate {
	ctx := contextAround(text, start, end)
	score := base
	if containsAny(strings.ToLower(ctx), nameContextKeywords) {
		score += bonusContextKeyword
	}
	words := strings.Fields(raw)
	if len(words) >= 2 && len(words) <= 5 {
		score += bonusLengthInBounds
	}
	return Candidate{
		Type:            TypeName,
		RawValue:        raw,
		NormalizedValue: TitleCaseName(raw),
		Confidence:      clamp(score),
		SourcePatternID: patternID,
		Context:         ctx,
	}
}

func plausibleName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		low := strings.ToLower(strings.Trim(w, ".,;"))
		if _, bad := nameBlacklist[low]; bad {
			return false
		}
		for _, r := range w {
			if unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// TitleCaseName renders a name in title case, keeping French particles
// lowercase except in first position.
func TitleCaseName(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		low := strings.ToLower(w)
		if i > 0 {
			if _, p := nameParticles[low]; p {
				words[i] = low
				continue
			}
		}
		words[i] = capitalizeHyphenated(low)
	}
	return strings.Join(words, " ")
}

func capitalizeHyphenated(w string) string {
	parts := strings.Split(w, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, "-")
}
