package structure

import (
	"regexp"
	"sort"
	"strings"
)

// keyword-vote language classifier: one point per stop-word hit, the highest
// scoring language wins if it reaches the threshold, otherwise French.
const languageVoteThreshold = 5

var languageKeywords = map[string][]string{
	"fr": {"le", "la", "les", "des", "une", "est", "dans", "pour", "avec", "sur", "par", "nous", "vous", "être", "fait", "entre", "ainsi", "cette", "sont", "aux"},
	"en": {"the", "and", "for", "with", "that", "this", "from", "shall", "agreement", "between", "hereby", "have", "will", "are", "not"},
	"es": {"el", "los", "las", "del", "por", "para", "con", "una", "que", "este", "entre", "sobre"},
	"ar": {"العقد", "بين", "الطرف", "على", "هذا", "من", "إلى", "في"},
}

var languageOrder = []string{"fr", "en", "es", "ar"}

var reToken = regexp.MustCompile(`[\p{L}']+`)

func detectLanguage(text string) string {
	tokens := reToken.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	best, bestScore := "fr", 0
	for _, lang := range languageOrder {
		score := 0
		for _, kw := range languageKeywords[lang] {
			score += counts[kw]
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	if bestScore < languageVoteThreshold {
		return "fr"
	}
	return best
}

// stop words removed before keyword ranking; French-heavy because the
// configured locales are francophone.
var stopWords = map[string]struct{}{}

func init() {
	for _, lang := range languageOrder {
		for _, w := range languageKeywords[lang] {
			stopWords[w] = struct{}{}
		}
	}
	for _, w := range []string{
		"de", "du", "un", "et", "ou", "au", "en", "se", "ce", "ne", "il",
		"elle", "son", "sa", "ses", "leur", "qui", "que", "plus", "tout",
		"article", "page", "ci", "après", "dont", "été", "être", "a", "à",
		"of", "to", "in", "on", "is", "as", "by", "or", "it", "an",
	} {
		stopWords[w] = struct{}{}
	}
}

func topKeywords(text string, n int) []string {
	tokens := reToken.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, tok := range tokens {
		if len([]rune(tok)) < 4 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, seen := counts[tok]; !seen {
			order[tok] = i
		}
		counts[tok]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	// frequency desc, first appearance asc for determinism
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
