package assembler

import (
	"strings"

	"github.com/centolabs/cento-go/pkg/core"
)

// Provenance records where one committed fragment came from. Every word of
// output traces to exactly one entry.
type Provenance struct {
	FragmentID string         `json:"fragment_id"`
	LineID     string         `json:"line_id"`
	Range      core.WordRange `json:"range"`
	Text       string         `json:"text"`
}

// UnmetObligation reports a continuity floor the finished document did not
// reach.
type UnmetObligation struct {
	Section  string `json:"section"`
	Family   string `json:"family"`
	Required int    `json:"required"`
	Achieved int    `json:"achieved"`
}

// Document is the finished assembly: the winning path's utterances with full
// provenance and run diagnostics.
type Document struct {
	DocumentID       string            `json:"document_id"`
	Phase            Phase             `json:"-"`
	Utterances       []core.Utterance  `json:"utterances"`
	Provenance       []Provenance      `json:"provenance"`
	Score            float64           `json:"score"`
	Decisions        int               `json:"decisions"`
	Checkpoints      int               `json:"checkpoints"`
	Rollbacks        int               `json:"rollbacks"`
	UnmetObligations []UnmetObligation `json:"unmet_obligations,omitempty"`
	JudgmentNotes    []string          `json:"judgment_notes,omitempty"`
}

// Text renders the document as one utterance per line.
func (d *Document) Text() string {
	lines := make([]string, 0, len(d.Utterances))
	for _, u := range d.Utterances {
		lines = append(lines, u.Text())
	}
	return strings.Join(lines, "\n")
}

func buildProvenance(utterances []core.Utterance) []Provenance {
	var out []Provenance
	for _, u := range utterances {
		for _, f := range u.Fragments {
			out = append(out, Provenance{
				FragmentID: f.ID,
				LineID:     f.LineID,
				Range:      f.Range,
				Text:       f.Text,
			})
		}
	}
	return out
}
