package recognize

import (
	"regexp"
	"strings"

	"github.com/docvars/extracteur/internal/refdata"
)

var addressContextKeywords = []string{
	"adresse", "domicilié", "domiciliée", "demeurant", "siège social",
	"siège", "résidant", "situé", "située",
}

var reAddressLabel = regexp.MustCompile(`(?im)\b(?:adresse|siège social|domicilié(?:e)? à|demeurant à?|résidant à?)\s*:?\s*([^\n]{5,100})`)

// AddressRecognizer detects postal addresses and reconstructs a normalized,
// country-ordered multi-line rendering from the recovered components.
type AddressRecognizer struct {
	tables *refdata.Tables

	reStreet     *regexp.Regexp
	reComplement *regexp.Regexp
	rePOBox      *regexp.Regexp
	reDistrict   *regexp.Regexp
	rePostalCity *regexp.Regexp
}

func NewAddressRecognizer(tables *refdata.Tables) *AddressRecognizer {
	addr := tables.Address
	return &AddressRecognizer{
		tables:       tables,
		reStreet:     regexp.MustCompile(`(?i)\b\d{1,4}(?:\s?(?:bis|ter))?,?\s+(?:` + keywordAlternation(addr.StreetKeywords) + `)\s+[\p{L}0-9'’ \-]{2,60}`),
		reComplement: regexp.MustCompile(`(?i)\b(?:` + keywordAlternation(addr.ComplementKeywords) + `)\s+[\p{L}0-9'’ \-]{1,40}`),
		rePOBox:      regexp.MustCompile(`(?i)\b(?:` + keywordAlternation(addr.POBoxKeywords) + `)\s*:?\s*\d{1,6}(?:\s+[\p{L}' \-]{2,30})?`),
		reDistrict:   regexp.MustCompile(`(?i)\b(?:` + keywordAlternation(addr.DistrictKeywords) + `)\s+[\p{L}0-9'’ \-]{2,40}`),
		rePostalCity: regexp.MustCompile(`\b(\d{4,5})\s+([\p{Lu}][\p{L}'’ \-]{2,40})`),
	}
}

func keywordAlternation(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	return strings.Join(quoted, "|")
}

type addressParts struct {
	street     string
	complement string
	poBox      string
	district   string
	postal     string
	city       string
	country    string
}

func (r *AddressRecognizer) Recognize(text, localeHint string) []Candidate {
	var cands []Candidate
	lines := strings.Split(text, "\n")

	for _, m := range reAddressLabel.FindAllStringSubmatchIndex(text, -1) {
		block := blockAround(text, lines, m[2])
		cands = append(cands, r.candidate(text, strings.TrimSpace(text[m[2]:m[3]]), block, m[2], m[3], baseExplicit, "address.label", localeHint))
	}
	for _, m := range r.reStreet.FindAllStringIndex(text, -1) {
		block := blockAround(text, lines, m[0])
		cands = append(cands, r.candidate(text, strings.TrimSpace(text[m[0]:m[1]]), block, m[0], m[1], baseLocale, "address.street", localeHint))
	}
	// postal code + city alone is the locale-agnostic catch-all
	for _, m := range r.rePostalCity.FindAllStringIndex(text, -1) {
		raw := strings.TrimSpace(text[m[0]:m[1]])
		cands = append(cands, r.candidate(text, raw, raw, m[0], m[1], baseGeneric, "address.postal_city", localeHint))
	}

	return Dedupe(cands)
}

// blockAround widens a match to its line plus the two following lines, the
// usual span of a postal address block.
func blockAround(text string, lines []string, offset int) string {
	lineIdx := strings.Count(text[:offset], "\n")
	end := lineIdx + 3
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[lineIdx:end], "\n")
}

func (r *AddressRecognizer) candidate(text, raw, block string, start, end int, base float64, patternID, localeHint string) Candidate {
	ctx := contextAround(text, start, end)
	parts := r.parseParts(block)
	locale := r.attributeLocale(parts, block+" "+ctx, localeHint)

	score := base
	if containsAny(strings.ToLower(ctx), addressContextKeywords) {
		score += bonusContextKeyword
	}
	if parts.postal != "" && locale != "" {
		if spec, ok := r.tables.Postal[locale]; ok && spec.Pattern.MatchString(parts.postal) {
			score += 0.15
		}
	}
	if parts.street != "" && parts.city != "" {
		score += bonusLengthInBounds
	}

	normalized := r.reconstruct(parts, locale)
	if normalized == "" {
		normalized = raw
	}

	return Candidate{
		Type:            TypeAddress,
		RawValue:        raw,
		NormalizedValue: normalized,
		Locale:          locale,
		Confidence:      clamp(score),
		SourcePatternID: patternID,
		Context:         ctx,
	}
}

func (r *AddressRecognizer) parseParts(block string) addressParts {
	var p addressParts
	if m := r.reStreet.FindString(block); m != "" {
		p.street = strings.TrimSpace(m)
	}
	if m := r.reComplement.FindString(block); m != "" {
		p.complement = strings.TrimSpace(m)
	}
	if m := r.rePOBox.FindString(block); m != "" {
		p.poBox = strings.TrimSpace(m)
	}
	if m := r.reDistrict.FindString(block); m != "" {
		p.district = strings.TrimSpace(m)
	}
	if m := r.rePostalCity.FindStringSubmatch(block); m != nil {
		p.postal = m[1]
		p.city = strings.TrimSpace(m[2])
	}
	if p.city == "" {
		p.city = r.findKnownCity(block)
	}
	low := strings.ToLower(block)
	for _, cc := range r.tables.Countries {
		for _, name := range r.tables.Address.CountryNames[cc] {
			if strings.Contains(low, name) {
				p.country = name
			}
		}
	}
	return p
}

func (r *AddressRecognizer) findKnownCity(block string) string {
	low := strings.ToLower(block)
	for _, cc := range r.tables.Countries {
		for _, city := range r.tables.Address.Cities[cc] {
			if strings.Contains(low, city) {
				return city
			}
		}
	}
	return ""
}

// attributeLocale: explicit country mention wins, then postal-code format
// inference, then city lists, then the caller's hint.
func (r *AddressRecognizer) attributeLocale(p addressParts, context, localeHint string) string {
	if cc := r.tables.CountryOfMention(context); cc != "" {
		return cc
	}
	if p.postal != "" {
		matched := ""
		for _, cc := range r.tables.Countries {
			spec, ok := r.tables.Postal[cc]
			if !ok {
				continue
			}
			if len(p.postal) == spec.Length && spec.Pattern.MatchString(p.postal) {
				if matched != "" {
					matched = ""
					break // ambiguous between countries
				}
				matched = cc
			}
		}
		if matched != "" {
			return matched
		}
	}
	if p.city != "" {
		low := strings.ToLower(p.city)
		for _, cc := range r.tables.Countries {
			for _, city := range r.tables.Address.Cities[cc] {
				if low == city {
					return cc
				}
			}
		}
	}
	return normalizeHint(localeHint, r.tables)
}

// reconstruct renders the address multi-line following the per-country
// component ordering table; unknown locales use the French ordering.
func (r *AddressRecognizer) reconstruct(p addressParts, locale string) string {
	order, ok := r.tables.Address.ComponentOrder[locale]
	if !ok {
		order = r.tables.Address.ComponentOrder["fr"]
	}
	var lines []string
	appendLine := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	for _, comp := range order {
		switch comp {
		case "street":
			appendLine(p.street)
		case "complement":
			appendLine(p.complement)
		case "po_box":
			appendLine(strings.ToUpper(p.poBox))
		case "district":
			appendLine(titleWords(p.district))
		case "postal_city":
			appendLine(strings.TrimSpace(p.postal + " " + titleWords(p.city)))
		case "city":
			appendLine(titleWords(p.city))
		case "country":
			appendLine(titleWords(p.country))
		}
	}
	return strings.Join(lines, "\n")
}

func titleWords(s string) string {
	if s == "" {
		return ""
	}
	return TitleCaseName(s)
}
