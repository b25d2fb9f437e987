// Package normalize cleans raw document text and rewrites dates, amounts,
// phone numbers and registration identifiers into the single shape the
// recognizers and extractors expect. Both passes are pure functions.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reSpaceRun   = regexp.MustCompile(`[ \t]{2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// ocrWordFixes is a fixed table of whole-word OCR confusions ("rn" read as
// "m" and the like). Only exact tokens are rewritten; a generic rn->m rule
// would corrupt legitimate French words.
var ocrWordFixes = map[string]string{
	"rnonsieur": "monsieur",
	"rnadame":   "madame",
	"rnontant":  "montant",
	"norn":      "nom",
	"prénorn":   "prénom",
	"nurnéro":   "numéro",
	"rnois":     "mois",
}

// digit-context confusions: a letter wedged between digits is a misread digit.
var (
	reDigitL = regexp.MustCompile(`(\d)[lI](\d)`)
	reDigitO = regexp.MustCompile(`(\d)[oO](\d)`)
)

// Clean removes control characters (newline and tab excepted), normalizes
// Unicode to NFC, fixes known OCR confusions, collapses whitespace runs and
// caps consecutive blank lines at one. Clean is idempotent and never fails;
// empty input yields the empty string.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = norm.NFC.String(s)
	s = stripControl(s)
	s = fixDigitConfusions(s)
	s = fixWordConfusions(s)
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(s)
}

func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			continue
		}
		// zero-width and BOM artifacts from PDF extraction
		if r == '\ufeff' || r == '\u200b' || r == '\u200c' || r == '\u200d' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fixDigitConfusions(s string) string {
	// replacements can overlap ("1l1l1"), so run to fixpoint
	for {
		next := reDigitL.ReplaceAllString(s, "${1}1${2}")
		next = reDigitO.ReplaceAllString(next, "${1}0${2}")
		if next == s {
			return s
		}
		s = next
	}
}

var reWord = regexp.MustCompile(`[\p{L}]+`)

func fixWordConfusions(s string) string {
	return reWord.ReplaceAllStringFunc(s, func(w string) string {
		if fixed, ok := ocrWordFixes[strings.ToLower(w)]; ok {
			return matchCase(w, fixed)
		}
		return w
	})
}

// matchCase re-applies the original token's leading capitalization.
func matchCase(original, fixed string) string {
	if original == "" || fixed == "" {
		return fixed
	}
	if unicode.IsUpper([]rune(original)[0]) {
		r := []rune(fixed)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return fixed
}
