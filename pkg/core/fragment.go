package core

import "strings"

// WordRange is an inclusive word-index interval within a source line.
type WordRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of words covered by the range.
func (r WordRange) Len() int {
	return r.End - r.Start + 1
}

// Overlaps reports whether two inclusive ranges intersect.
func (r WordRange) Overlaps(other WordRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// ReuseKey is the (line, range) identity used to forbid re-selection of a
// fragment's words anywhere else in the same document.
type ReuseKey struct {
	LineID string    `json:"line_id"`
	Range  WordRange `json:"range"`
}

// FeatureTags carries the precomputed features a fragment arrives with from
// the external store. The engine never computes these; it only reads them.
type FeatureTags struct {
	FirstToken             string   `json:"first_token" yaml:"first_token"`
	LastToken              string   `json:"last_token" yaml:"last_token"`
	StartsWithFunctionWord bool     `json:"starts_with_function_word" yaml:"starts_with_function_word"`
	EndsWithFunctionWord   bool     `json:"ends_with_function_word" yaml:"ends_with_function_word"`
	OpensMidClause         bool     `json:"opens_mid_clause" yaml:"opens_mid_clause"`
	EndsSentence           bool     `json:"ends_sentence" yaml:"ends_sentence"`
	PunctuationClass       string   `json:"punctuation_class" yaml:"punctuation_class"`
	SyllableCount          int      `json:"syllable_count" yaml:"syllable_count"`
	StressPattern          string   `json:"stress_pattern" yaml:"stress_pattern"`
	RhymeClass             string   `json:"rhyme_class" yaml:"rhyme_class"`
	StyleTags              []string `json:"style_tags" yaml:"style_tags"`
	Families               []string `json:"families" yaml:"families"`
}

// Fragment is an immutable verbatim unit from the source corpus.
type Fragment struct {
	ID            string      `json:"fragment_id" yaml:"fragment_id"`
	LineID        string      `json:"line_id" yaml:"line_id"`
	Range         WordRange   `json:"range" yaml:"range"`
	Text          string      `json:"text" yaml:"text"`
	LineWordCount int         `json:"line_word_count" yaml:"line_word_count"`
	Tags          FeatureTags `json:"tags" yaml:"tags"`
}

// WordCount returns the number of words in the fragment.
func (f Fragment) WordCount() int {
	return f.Range.Len()
}

// ReuseKey returns the uniqueness identity for this fragment's words.
func (f Fragment) ReuseKey() ReuseKey {
	return ReuseKey{LineID: f.LineID, Range: f.Range}
}

// Tokens splits the literal text into whitespace-delimited tokens.
func (f Fragment) Tokens() []string {
	return strings.Fields(f.Text)
}
