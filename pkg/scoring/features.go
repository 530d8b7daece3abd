package scoring

import (
	"golang.org/x/text/cases"

	"github.com/centolabs/cento-go/pkg/core"
)

var folder = cases.Fold()

// foldToken lowercases a token with full Unicode case folding so anchor
// matching behaves the same for corpus text in any case convention.
func foldToken(token string) string {
	return folder.String(token)
}

// familyHits returns the obligation families the candidate would hit, in
// guidance order. A family is hit when the fragment carries the family tag
// or its literal text contains the family term.
func familyHits(f core.Fragment, guidance core.GuidanceProfile) []string {
	tokens := make(map[string]bool, len(f.Tags.Families)+f.WordCount())
	for _, family := range f.Tags.Families {
		tokens[foldToken(family)] = true
	}
	for _, token := range f.Tokens() {
		tokens[foldToken(token)] = true
	}

	var hits []string
	for _, o := range guidance.Obligations {
		if tokens[foldToken(o.Family)] {
			hits = append(hits, o.Family)
		}
	}
	return hits
}

// familyOverlap counts families shared between two fragments.
func familyOverlap(a, b core.Fragment) int {
	have := make(map[string]bool, len(a.Tags.Families))
	for _, family := range a.Tags.Families {
		have[foldToken(family)] = true
	}
	n := 0
	for _, family := range b.Tags.Families {
		if have[foldToken(family)] {
			n++
		}
	}
	return n
}

// windowRepeats counts how many of the candidate's style tags already sit in
// the rolling window.
func windowRepeats(f core.Fragment, window []string) int {
	seen := make(map[string]bool, len(window))
	for _, tag := range window {
		seen[tag] = true
	}
	n := 0
	for _, tag := range f.Tags.StyleTags {
		if seen[tag] {
			n++
		}
	}
	return n
}
