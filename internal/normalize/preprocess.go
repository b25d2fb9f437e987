package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pivotYear decides the century of two-digit years: values below it are
// 2000s, the rest 1900s.
const pivotYear = 30

var frenchMonths = map[string]int{
	"janvier": 1, "février": 2, "fevrier": 2, "mars": 3, "avril": 4,
	"mai": 5, "juin": 6, "juillet": 7, "août": 8, "aout": 8,
	"septembre": 9, "octobre": 10, "novembre": 11, "décembre": 12, "decembre": 12,
}

var (
	rePageNumber = regexp.MustCompile(`(?mi)^\s*(?:page\s+\d+(?:\s*(?:/|sur)\s*\d+)?|-\s*\d+\s*-|\d+\s*/\s*\d+)\s*$\n?`)

	// 1 234 567,89 € / EUR 1 234,50: grouped thousands next to a currency
	// token. The word boundary sits inside the alternation: € is a non-word
	// rune, so a trailing \b after it can never match.
	reAmountGrouped = regexp.MustCompile(`(?i)(\d{1,3}(?:[ \x{202f}\x{00a0}]\d{3})+(?:[.,]\d{1,2})?)(\s*(?:€|(?:eur|euros?|fcfa|xof|xaf|dh|dhs|mad|dt|tnd|da|dzd)\b))`)
	reCurrencyLead  = regexp.MustCompile(`(?i)(€|\b(?:eur|euros?|fcfa|xof|xaf|dh|dhs|mad|dt|tnd|da|dzd)\b)(\s*)(\d{1,3}(?:[ \x{202f}\x{00a0}]\d{3})+(?:[.,]\d{1,2})?)`)

	reDateNumeric = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{2}|\d{4})\b`)
	reDateMonth   = regexp.MustCompile(`(?i)\b(1er|\d{1,2})\s+(janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre)\s+(\d{4})\b`)

	rePhoneFR = regexp.MustCompile(`\b0([1-9])((?:[ .\-]?\d{2}){4})\b`)

	// MA, DZ and TN national numbers share the 0X XX XX XX XX shape; a
	// competing country mention means the +33 rewrite must not claim them.
	reNonFRMention = regexp.MustCompile(`(?i)maroc|marocain|casablanca|rabat|alg[ée]rie|alg[ée]rien|alger|oran|tunisie|tunisien|tunis|sfax`)

	reSIRETSpaced = regexp.MustCompile(`(?i)\b(siret|siren)\s*:?\s*(\d[\d ]{7,18}\d)\b`)
	reTVASpaced   = regexp.MustCompile(`(?i)\b(tva(?:\s+intracommunautaire)?(?:\s+intra)?\s*:?\s*)(FR)\s?(\d{2})\s?(\d{3})\s?(\d{3})\s?(\d{3})\b`)

	reGroupSep = regexp.MustCompile(`[ \x{202f}\x{00a0}]`)
	reNonDigit = regexp.MustCompile(`\D`)
)

// Preprocess performs the format-aware rewrites that make downstream pattern
// tables single-shape: page-number artifacts are dropped, grouped amounts
// joined, dates reshaped to DD/MM/YYYY, French month names made numeric,
// French phone tokens rewritten to +33 form, and SIRET/TVA tokens despaced.
// The locale hint gates the phone rewrite: a non-French hint, or a Maghreb
// country mention on an unhinted document, leaves national numbers for the
// recognizers to attribute. For any hint h, Preprocess(Preprocess(Clean(x),
// h), h) == Preprocess(Clean(x), h).
func Preprocess(s, localeHint string) string {
	if s == "" {
		return ""
	}
	s = rePageNumber.ReplaceAllString(s, "")
	s = joinGroupedAmounts(s)
	s = rewriteMonthDates(s)
	s = rewriteNumericDates(s)
	s = rewriteFrenchPhones(s, localeHint)
	s = despaceRegistrationNumbers(s)
	return s
}

func joinGroupedAmounts(s string) string {
	s = reAmountGrouped.ReplaceAllStringFunc(s, func(m string) string {
		parts := reAmountGrouped.FindStringSubmatch(m)
		return reGroupSep.ReplaceAllString(parts[1], "") + parts[2]
	})
	s = reCurrencyLead.ReplaceAllStringFunc(s, func(m string) string {
		parts := reCurrencyLead.FindStringSubmatch(m)
		return parts[1] + parts[2] + reGroupSep.ReplaceAllString(parts[3], "")
	})
	return s
}

func rewriteNumericDates(s string) string {
	return reDateNumeric.ReplaceAllStringFunc(s, func(m string) string {
		parts := reDateNumeric.FindStringSubmatch(m)
		day, _ := strconv.Atoi(parts[1])
		month, _ := strconv.Atoi(parts[2])
		year, _ := strconv.Atoi(parts[3])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return m
		}
		if len(parts[3]) == 2 {
			if year < pivotYear {
				year += 2000
			} else {
				year += 1900
			}
		}
		return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
	})
}

func rewriteMonthDates(s string) string {
	return reDateMonth.ReplaceAllStringFunc(s, func(m string) string {
		parts := reDateMonth.FindStringSubmatch(m)
		dayTok := strings.ToLower(parts[1])
		if dayTok == "1er" {
			dayTok = "1"
		}
		day, _ := strconv.Atoi(dayTok)
		month := frenchMonths[strings.ToLower(parts[2])]
		year, _ := strconv.Atoi(parts[3])
		if day < 1 || day > 31 || month == 0 {
			return m
		}
		return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
	})
}

func rewriteFrenchPhones(s, localeHint string) string {
	hint := strings.ToLower(strings.TrimSpace(localeHint))
	if hint != "" && hint != "fr" {
		return s
	}
	if hint == "" && reNonFRMention.MatchString(s) {
		return s
	}
	return rePhoneFR.ReplaceAllStringFunc(s, func(m string) string {
		parts := rePhoneFR.FindStringSubmatch(m)
		rest := reNonDigit.ReplaceAllString(parts[2], "")
		if len(rest) != 8 {
			return m
		}
		return "+33" + parts[1] + rest
	})
}

func despaceRegistrationNumbers(s string) string {
	s = reSIRETSpaced.ReplaceAllStringFunc(s, func(m string) string {
		parts := reSIRETSpaced.FindStringSubmatch(m)
		digits := reNonDigit.ReplaceAllString(parts[2], "")
		if len(digits) != 9 && len(digits) != 14 {
			return m
		}
		return strings.ToUpper(parts[1]) + ": " + digits
	})
	s = reTVASpaced.ReplaceAllStringFunc(s, func(m string) string {
		parts := reTVASpaced.FindStringSubmatch(m)
		return parts[1] + parts[2] + parts[3] + parts[4] + parts[5] + parts[6]
	})
	return s
}
