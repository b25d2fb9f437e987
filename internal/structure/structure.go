// Package structure segments normalized document text into header, body,
// footer and signature, and derives title, headings, tables, form fields,
// keywords, language and a coarse document-type label.
package structure

import (
	"regexp"
	"strings"
	"unicode"
)

// Structure is the result of Analyze.
type Structure struct {
	Title        string              `json:"title,omitempty"`
	Header       string              `json:"header,omitempty"`
	Body         string              `json:"body,omitempty"`
	Footer       string              `json:"footer,omitempty"`
	Signature    string              `json:"signature,omitempty"`
	Headings     []string            `json:"headings,omitempty"`
	Tables       [][][]string        `json:"tables,omitempty"`
	FormFields   map[string]string   `json:"form_fields,omitempty"`
	Keywords     []string            `json:"keywords,omitempty"`
	Language     string              `json:"language"`
	DocumentType string              `json:"document_type"`
}

const (
	headerMaxLines     = 5
	headerMaxFraction  = 0.20
	signatureScanLines = 15
	footerMinLines     = 2
	footerMaxLines     = 5
	keywordTopN        = 10
)

var signatureKeywords = []string{
	"signature", "signé", "signataire", "lu et approuvé", "fait à", "fait a",
	"cordialement", "salutations", "sincères salutations", "bien à vous",
	"pour accord", "bon pour accord", "le directeur", "la directrice",
	"le gérant", "le président",
}

// Analyzer computes Structure values. It is stateless and safe for
// concurrent use.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze never fails; empty text yields a Structure with defaults only.
func (a *Analyzer) Analyze(text string) *Structure {
	s := &Structure{
		Language:     "fr",
		DocumentType: docTypeDefault,
		FormFields:   map[string]string{},
	}
	if strings.TrimSpace(text) == "" {
		return s
	}

	lines := strings.Split(text, "\n")
	headerEnd, sigStart, footerStart := segment(lines)

	s.Header = strings.TrimSpace(strings.Join(lines[:headerEnd], "\n"))
	s.Body = strings.TrimSpace(strings.Join(lines[headerEnd:footerStart], "\n"))
	s.Footer = strings.TrimSpace(strings.Join(lines[footerStart:sigStart], "\n"))
	s.Signature = strings.TrimSpace(strings.Join(lines[sigStart:], "\n"))

	s.Title = detectTitle(lines)
	s.Headings = detectHeadings(lines)
	s.Tables = detectTables(lines)
	s.FormFields = detectFormFields(lines)
	s.Keywords = topKeywords(text, keywordTopN)
	s.Language = detectLanguage(text)
	s.DocumentType = classifyDocumentType(text, s.Headings, len(s.Tables) > 0)
	return s
}

// segment returns the header end index, the signature start index and the
// footer start index (footerStart <= sigStart). Indexes are line offsets.
func segment(lines []string) (headerEnd, sigStart, footerStart int) {
	n := len(lines)

	headerEnd = int(float64(n) * headerMaxFraction)
	if headerEnd > headerMaxLines {
		headerEnd = headerMaxLines
	}
	if headerEnd < 1 && n > 0 {
		headerEnd = 1
	}

	// signature: scan the last lines backward for a keyword hit
	sigStart = n
	scanFrom := n - signatureScanLines
	if scanFrom < headerEnd {
		scanFrom = headerEnd
	}
	for i := n - 1; i >= scanFrom; i-- {
		low := strings.ToLower(lines[i])
		for _, kw := range signatureKeywords {
			if strings.Contains(low, kw) {
				sigStart = i
			}
		}
	}

	if sigStart < n {
		footerStart = sigStart - footerMaxLines
		if sigStart-footerStart < footerMinLines {
			footerStart = sigStart - footerMinLines
		}
	} else {
		// no signature found: footer is the last 10% of lines
		footerStart = n - n/10
	}
	if footerStart < headerEnd {
		footerStart = headerEnd
	}
	if footerStart > sigStart {
		footerStart = sigStart
	}
	return headerEnd, sigStart, footerStart
}

var reFramed = regexp.MustCompile(`^(?:={3,}|-{3,})$`)

func detectTitle(lines []string) string {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || reFramed.MatchString(trimmed) {
			continue
		}
		// a short prominent first line is the title; long prose is not
		if len([]rune(trimmed)) <= 80 {
			return trimmed
		}
		if i >= 3 {
			break
		}
	}
	return ""
}

var (
	reArticleHeading = regexp.MustCompile(`(?i)^article\s+\d+`)
	reOutlineHeading = regexp.MustCompile(`^\d+(?:\.\d+)*[.)]?\s+\S`)
)

func detectHeadings(lines []string) []string {
	var headings []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case reArticleHeading.MatchString(trimmed):
			headings = append(headings, trimmed)
		case reOutlineHeading.MatchString(trimmed) && len([]rune(trimmed)) <= 80:
			headings = append(headings, trimmed)
		case isAllCapsShort(trimmed):
			headings = append(headings, trimmed)
		case framedBy(lines, i):
			headings = append(headings, trimmed)
		}
	}
	return dedupeStrings(headings)
}

func isAllCapsShort(s string) bool {
	runes := []rune(s)
	if len(runes) < 3 || len(runes) > 60 {
		return false
	}
	letters, uppers := 0, 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	return letters >= 3 && uppers == letters
}

// framedBy reports whether the line at i sits between === or --- rules.
func framedBy(lines []string, i int) bool {
	if i == 0 || i == len(lines)-1 {
		return false
	}
	prev := strings.TrimSpace(lines[i-1])
	next := strings.TrimSpace(lines[i+1])
	return reFramed.MatchString(prev) && reFramed.MatchString(next)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
