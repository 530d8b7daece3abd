package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	wordPattern  = regexp.MustCompile(`[A-Za-z']+`)
	vowelPattern = regexp.MustCompile(`(?i)[aeiouy]+`)

	folder = cases.Fold()
)

// functionWords is the closed-class vocabulary used for edge-collision checks.
var functionWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "with": true,
}

// Tokenize splits text into word tokens, keeping internal apostrophes and
// dropping punctuation.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// IsFunctionWord reports whether a token is closed-class, case-insensitively.
func IsFunctionWord(token string) bool {
	return functionWords[folder.String(token)]
}

// estimateSyllables counts vowel groups as a syllable estimate, minimum one
// per non-empty token.
func estimateSyllables(token string) int {
	if token == "" {
		return 0
	}
	groups := vowelPattern.FindAllString(token, -1)
	if len(groups) == 0 {
		return 1
	}
	return len(groups)
}

// rhymeTail derives a crude rhyme class from a token's trailing characters.
func rhymeTail(token string) string {
	folded := folder.String(token)
	if len(folded) <= 3 {
		return folded
	}
	return folded[len(folded)-3:]
}

// wordStress estimates a per-word stress contribution: function words are
// unstressed, content monosyllables stressed, longer words alternate starting
// unstressed.
func wordStress(token string) string {
	syllables := estimateSyllables(token)
	if syllables <= 1 {
		if IsFunctionWord(token) {
			return "0"
		}
		return "1"
	}
	var b strings.Builder
	for i := 0; i < syllables; i++ {
		if i%2 == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// stressPattern concatenates per-word stress estimates.
func stressPattern(tokens []string) string {
	var b strings.Builder
	for _, token := range tokens {
		b.WriteString(wordStress(token))
	}
	return b.String()
}

// syllableTotal sums per-token syllable estimates.
func syllableTotal(tokens []string) int {
	total := 0
	for _, token := range tokens {
		total += estimateSyllables(token)
	}
	return total
}

// punctuationClass names the sentence-final punctuation of a line.
func punctuationClass(text string) string {
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		return "none"
	}
	switch trimmed[len(trimmed)-1] {
	case '.':
		return "period"
	case '?':
		return "question"
	case '!':
		return "exclamation"
	case ';':
		return "semicolon"
	case ':':
		return "colon"
	case ',':
		return "comma"
	default:
		return "none"
	}
}
