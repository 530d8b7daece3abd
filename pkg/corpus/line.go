package corpus

import (
	"fmt"
	"strings"

	"github.com/centolabs/cento-go/pkg/core"
)

// Fragment size limits for line expansion. No fragment may exceed one source
// line; the lower bound matches the engine's legality floor.
const (
	minFragmentWords = 3
	maxFragmentWords = 8
)

// Line is one canonical source line with provenance and optional curator
// metadata carried onto every fragment cut from it.
type Line struct {
	LineID    string   `json:"line_id" yaml:"line_id"`
	Text      string   `json:"text" yaml:"text"`
	Speaker   string   `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	StyleTags []string `json:"style_tags,omitempty" yaml:"style_tags,omitempty"`
	Families  []string `json:"families,omitempty" yaml:"families,omitempty"`
}

// ExpandLine cuts a line into every contiguous word window of legal size and
// derives the feature tags each fragment needs for filtering and scoring.
// Windows are emitted in (start, end) order, so expansion is deterministic.
func ExpandLine(line Line) []core.Fragment {
	tokens := Tokenize(line.Text)
	n := len(tokens)
	if n < minFragmentWords {
		return nil
	}

	punct := punctuationClass(line.Text)

	var fragments []core.Fragment
	for start := 0; start < n; start++ {
		maxEnd := start + maxFragmentWords - 1
		if maxEnd > n-1 {
			maxEnd = n - 1
		}
		for end := start + minFragmentWords - 1; end <= maxEnd; end++ {
			window := tokens[start : end+1]
			endsLine := end == n-1

			f := core.Fragment{
				ID:            fmt.Sprintf("%s:%d-%d", line.LineID, start, end),
				LineID:        line.LineID,
				Range:         core.WordRange{Start: start, End: end},
				Text:          strings.Join(window, " "),
				LineWordCount: n,
				Tags: core.FeatureTags{
					FirstToken:             window[0],
					LastToken:              window[len(window)-1],
					StartsWithFunctionWord: IsFunctionWord(window[0]),
					EndsWithFunctionWord:   IsFunctionWord(window[len(window)-1]),
					OpensMidClause:         start > 0,
					EndsSentence:           endsLine && punct != "none" && punct != "comma",
					PunctuationClass:       punct,
					SyllableCount:          syllableTotal(window),
					StressPattern:          stressPattern(window),
					RhymeClass:             rhymeTail(window[len(window)-1]),
					StyleTags:              append([]string(nil), line.StyleTags...),
					Families:               append([]string(nil), line.Families...),
				},
			}
			fragments = append(fragments, f)
		}
	}
	return fragments
}

// ExpandLines expands every line in order.
func ExpandLines(lines []Line) []core.Fragment {
	var fragments []core.Fragment
	for _, line := range lines {
		fragments = append(fragments, ExpandLine(line)...)
	}
	return fragments
}
