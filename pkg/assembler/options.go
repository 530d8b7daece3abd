package assembler

import (
	"github.com/centolabs/cento-go/pkg/checkpoint"
	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/memory"
)

// Option customizes a Controller.
type Option func(*Controller)

// WithJudgment wires the external critic consulted at checkpoint boundaries.
func WithJudgment(j core.Judgment) Option {
	return func(c *Controller) { c.judgment = j }
}

// WithChooser wires the external tie-breaker consulted when top candidate
// scores fall within the entropy threshold.
func WithChooser(ch core.Chooser) Option {
	return func(c *Controller) { c.chooser = ch }
}

// WithNegativeMemory substitutes a shared penalty table for the default
// per-run table.
func WithNegativeMemory(m memory.NegativeMemory) Option {
	return func(c *Controller) { c.memory = m }
}

// WithArchive enables write-behind checkpoint persistence.
func WithArchive(a *checkpoint.Archive) Option {
	return func(c *Controller) { c.archive = a }
}

// WithDocumentID fixes the document ID instead of generating one, making a
// full run reproducible end to end.
func WithDocumentID(id string) Option {
	return func(c *Controller) { c.documentID = id }
}
