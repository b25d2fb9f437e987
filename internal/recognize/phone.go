package recognize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/docvars/extracteur/internal/refdata"
)

var (
	rePhoneLabel = regexp.MustCompile(`(?i)\b(?:tél(?:éphone)?|telephone|tel|portable|mobile|fax|gsm)\.?\s*:?\s*(\+?\d[\d .\-()]{6,18}\d)`)
	rePhoneGen   = regexp.MustCompile(`\+?\d{1,3}(?:[ .\-]?\(?\d{1,4}\)?)(?:[ .\-]?\d{2,4}){2,5}`)
	rePhoneDigit = regexp.MustCompile(`\D`)
)

var phoneContextKeywords = []string{
	"tél", "tel", "téléphone", "telephone", "portable", "mobile", "fax",
	"gsm", "appeler", "joindre", "contact",
}

// PhoneRecognizer detects telephone numbers in three tiers: explicit label,
// per-country numbering plan, generic digit-run catch-all.
type PhoneRecognizer struct {
	tables *refdata.Tables
}

func NewPhoneRecognizer(tables *refdata.Tables) *PhoneRecognizer {
	return &PhoneRecognizer{tables: tables}
}

func (r *PhoneRecognizer) Recognize(text, localeHint string) []Candidate {
	var cands []Candidate

	for _, m := range rePhoneLabel.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		cands = append(cands, r.candidate(text, raw, m[2], m[3], baseExplicit, "phone.label", localeHint))
	}
	for _, cc := range r.tables.Countries {
		spec, ok := r.tables.Phones[cc]
		if !ok {
			continue
		}
		for i, pat := range spec.Patterns {
			for _, m := range pat.FindAllStringIndex(text, -1) {
				// the national sub-span of a +-prefixed number belongs to
				// the dial code's country; the label and generic tiers
				// already carry the full number
				if precededByDialCode(text, m[0]) {
					continue
				}
				// locale attribution stays with attributeLocale: a shape
				// shared by several numbering plans must not be claimed by
				// whichever country's tier matched it first
				cands = append(cands, r.candidate(text, text[m[0]:m[1]], m[0], m[1], baseLocale, "phone."+cc+"."+strconv.Itoa(i), localeHint))
			}
		}
	}
	for _, m := range rePhoneGen.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		digits := rePhoneDigit.ReplaceAllString(raw, "")
		if len(digits) < 8 || len(digits) > 15 {
			continue
		}
		cands = append(cands, r.candidate(text, raw, m[0], m[1], baseGeneric, "phone.generic", localeHint))
	}

	return Dedupe(cands)
}

func (r *PhoneRecognizer) candidate(text, raw string, start, end int, base float64, patternID, localeHint string) Candidate {
	ctx := contextAround(text, start, end)
	locale := r.attributeLocale(raw, ctx, localeHint)
	normalized := r.normalize(raw, locale)

	score := base
	if containsAny(strings.ToLower(ctx), phoneContextKeywords) {
		score += bonusContextKeyword
	}
	digits := rePhoneDigit.ReplaceAllString(normalized, "")
	if len(digits) >= 8 && len(digits) <= 15 {
		score += bonusLengthInBounds
	}
	if locale != "" {
		if spec, ok := r.tables.Phones[locale]; ok && nationalLengthMatches(normalized, spec) {
			score += 0.15
		}
	}

	return Candidate{
		Type:            TypePhone,
		RawValue:        raw,
		NormalizedValue: normalized,
		Locale:          locale,
		Confidence:      clamp(score),
		SourcePatternID: patternID,
		Context:         ctx,
	}
}

// attributeLocale resolves the candidate's country: the dial code wins, then
// an explicit country mention in the context window, then a format-based
// inference over the numbering plans, then the caller's hint.
func (r *PhoneRecognizer) attributeLocale(raw, ctx, localeHint string) string {
	digits := rePhoneDigit.ReplaceAllString(raw, "")
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		for _, cc := range r.tables.Countries {
			spec, ok := r.tables.Phones[cc]
			if !ok {
				continue
			}
			if strings.HasPrefix("+"+digits, spec.DialCode) {
				return cc
			}
		}
	}
	if cc := r.tables.CountryOfMention(ctx); cc != "" {
		return cc
	}
	matched := ""
	for _, cc := range r.tables.Countries {
		spec, ok := r.tables.Phones[cc]
		if !ok {
			continue
		}
		for _, pat := range spec.Patterns {
			if pat.MatchString(raw) {
				if matched != "" && matched != cc {
					return normalizeHint(localeHint, r.tables) // ambiguous format
				}
				matched = cc
			}
		}
	}
	if matched != "" {
		return matched
	}
	return normalizeHint(localeHint, r.tables)
}

// normalize renders the number in international +<country><national> form
// when the country is known, else as a bare digit string (keeping a leading
// plus when present).
func (r *PhoneRecognizer) normalize(raw, locale string) string {
	digits := rePhoneDigit.ReplaceAllString(raw, "")
	hasPlus := strings.HasPrefix(strings.TrimSpace(raw), "+")

	if locale != "" {
		if spec, ok := r.tables.Phones[locale]; ok {
			dial := strings.TrimPrefix(spec.DialCode, "+")
			if hasPlus && strings.HasPrefix(digits, dial) {
				return "+" + digits
			}
			national := digits
			if spec.TrunkPrefix != "" && strings.HasPrefix(national, spec.TrunkPrefix) {
				national = national[len(spec.TrunkPrefix):]
			}
			if spec.NationalLength == 0 || len(national) == spec.NationalLength {
				return spec.DialCode + national
			}
		}
	}
	if hasPlus {
		return "+" + digits
	}
	return digits
}

// precededByDialCode reports whether the span starting at start is the tail
// of a number whose preceding digits carry a + dial prefix.
func precededByDialCode(text string, start int) bool {
	for i := start - 1; i >= 0; i-- {
		switch c := text[i]; {
		case c == '+':
			return true
		case c >= '0' && c <= '9',
			c == ' ', c == '.', c == '-', c == '(', c == ')':
		default:
			return false
		}
	}
	return false
}

func nationalLengthMatches(normalized string, spec *refdata.PhoneSpec) bool {
	if spec.NationalLength == 0 {
		return true
	}
	digits := rePhoneDigit.ReplaceAllString(normalized, "")
	dial := strings.TrimPrefix(spec.DialCode, "+")
	if strings.HasPrefix(digits, dial) {
		digits = digits[len(dial):]
	}
	return len(digits) == spec.NationalLength
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func normalizeHint(hint string, tables *refdata.Tables) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	for _, cc := range tables.Countries {
		if hint == cc {
			return cc
		}
	}
	return ""
}
