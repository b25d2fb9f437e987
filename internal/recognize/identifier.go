package recognize

import (
	"regexp"
	"strings"

	"github.com/docvars/extracteur/internal/checksum"
	"github.com/docvars/extracteur/internal/refdata"
)

var (
	reIdentifierGeneric = regexp.MustCompile(`(?i)\bn°\s*:?\s*([A-Z0-9][A-Z0-9\-/]{4,24})`)
	reIdentifierDigits  = regexp.MustCompile(`\b\d{8,18}\b`)
	reIdentifierSpaces  = regexp.MustCompile(`[ .]`)
)

var identifierContextKeywords = []string{
	"n°", "numéro", "identifiant", "immatriculation", "siret", "siren",
	"cni", "cin", "passeport", "iban", "rib", "tva", "fiscal", "registre",
}

// labelled pattern compiled per identifier spec at construction.
type labelledIdentifier struct {
	country string
	spec    *refdata.IdentifierSpec
	labelRe *regexp.Regexp
}

// IdentifierRecognizer detects official identifiers (CNI, passport, SIRET,
// NINEA, ICE, IBAN, ...) from the per-country format tables.
type IdentifierRecognizer struct {
	tables   *refdata.Tables
	labelled []labelledIdentifier
}

func NewIdentifierRecognizer(tables *refdata.Tables) *IdentifierRecognizer {
	r := &IdentifierRecognizer{tables: tables}
	for _, cc := range tables.Countries {
		for _, spec := range tables.Identifiers[cc] {
			if len(spec.Labels) == 0 {
				continue
			}
			pat := `(?i)(?:n°|no|num[eé]ro)?\s*\b(?:` + keywordAlternation(spec.Labels) + `)\b\s*(?:n°|no|num[eé]ro)?\s*:?\s*(` + spec.Pattern.String() + `)`
			r.labelled = append(r.labelled, labelledIdentifier{
				country: cc,
				spec:    spec,
				labelRe: regexp.MustCompile(pat),
			})
		}
	}
	return r
}

func (r *IdentifierRecognizer) Recognize(text, localeHint string) []Candidate {
	var cands []Candidate

	for _, li := range r.labelled {
		for _, m := range li.labelRe.FindAllStringSubmatchIndex(text, -1) {
			raw := text[m[2]:m[3]]
			id := "id." + li.country + "." + li.spec.Kind + ".label"
			cands = append(cands, r.candidate(text, raw, m[2], m[3], baseExplicit, id, li.country, li.spec, localeHint))
		}
	}
	for _, cc := range r.tables.Countries {
		for _, spec := range r.tables.Identifiers[cc] {
			for _, m := range spec.Pattern.FindAllStringIndex(text, -1) {
				raw := text[m[0]:m[1]]
				id := "id." + cc + "." + spec.Kind
				cands = append(cands, r.candidate(text, raw, m[0], m[1], baseLocale, id, cc, spec, localeHint))
			}
		}
	}
	for _, m := range reIdentifierGeneric.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		cands = append(cands, r.candidate(text, raw, m[2], m[3], baseGeneric, "id.generic", "", nil, localeHint))
	}
	for _, m := range reIdentifierDigits.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		cands = append(cands, r.candidate(text, raw, m[0], m[1], baseGeneric, "id.generic.digits", "", nil, localeHint))
	}

	return Dedupe(cands)
}

func (r *IdentifierRecognizer) candidate(text, raw string, start, end int, base float64, patternID, country string, spec *refdata.IdentifierSpec, localeHint string) Candidate {
	ctx := contextAround(text, start, end)
	normalized := strings.ToUpper(reIdentifierSpaces.ReplaceAllString(strings.TrimSpace(raw), ""))

	locale := country
	if locale == "" {
		if cc := r.tables.CountryOfMention(ctx); cc != "" {
			locale = cc
		} else {
			locale = normalizeHint(localeHint, r.tables)
		}
	}

	score := base
	if containsAny(strings.ToLower(ctx), identifierContextKeywords) {
		score += bonusContextKeyword
	}
	if n := len(normalized); n >= 5 && n <= 34 {
		score += bonusLengthInBounds
	}
	if spec != nil {
		switch spec.Checksum {
		case "luhn":
			if checksum.Luhn(normalized) {
				score += 0.20
			}
		case "mod97":
			if checksum.IBAN(normalized) {
				score += 0.30
			}
		case "nir":
			if checksum.NIR(normalized) {
				score += 0.30
			}
		}
	}

	return Candidate{
		Type:            TypeIdentifier,
		RawValue:        raw,
		NormalizedValue: normalized,
		Locale:          locale,
		Confidence:      clamp(score),
		SourcePatternID: patternID,
		Context:         ctx,
	}
}

// KindOf extracts the identifier kind encoded in an identifier candidate's
// pattern id ("id.fr.siret.label" -> "siret"), or "" for generic hits.
func KindOf(c Candidate) string {
	if c.Type != TypeIdentifier {
		return ""
	}
	parts := strings.Split(c.SourcePatternID, ".")
	if len(parts) < 3 || parts[0] != "id" || parts[1] == "generic" {
		return ""
	}
	return parts[2]
}
