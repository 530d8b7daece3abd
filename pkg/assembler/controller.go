// Package assembler runs the beam-search assembly loop: enumerate legal
// candidates per path, score, keep the top K, checkpoint every N decisions,
// and recover from dead ends by rolling back and penalizing the failed
// choices.
package assembler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/centolabs/cento-go/pkg/checkpoint"
	"github.com/centolabs/cento-go/pkg/config"
	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/judge"
	"github.com/centolabs/cento-go/pkg/ledger"
	"github.com/centolabs/cento-go/pkg/logging"
	"github.com/centolabs/cento-go/pkg/memory"
	"github.com/centolabs/cento-go/pkg/scoring"
	"github.com/centolabs/cento-go/pkg/transition"
)

// rollbackAttemptsPerCheckpoint bounds how often the controller retries from
// the same checkpoint before stepping back to an earlier one. Stepping below
// checkpoint zero exhausts the rollback chain.
const rollbackAttemptsPerCheckpoint = 3

// chooserShortlistSize caps the options handed to the external chooser.
const chooserShortlistSize = 4

// maxRollbacksPerDocument bounds total rollbacks across a run. Negative
// memory is expected to steer the search away from repeated failures well
// before this; hitting the cap means the configuration cannot be satisfied.
const maxRollbacksPerDocument = 32

// path is one beam entry: an assembly state plus its privately owned ledger.
type path struct {
	state *core.AssemblyState
	led   *ledger.ReuseLedger
}

// scored is one candidate after enumeration and scoring, before selection.
type scored struct {
	pathIndex int
	fragment  core.Fragment
	result    core.ScoreResult
	total     float64
	closes    bool
}

// Controller drives one document's generation.
type Controller struct {
	cfg      config.Config
	sections []core.GuidanceProfile
	store    core.FragmentStore
	enum     *transition.Enumerator

	memory      memory.NegativeMemory
	checkpoints *checkpoint.Store
	archive     *checkpoint.Archive
	judgment    core.Judgment
	chooser     core.Chooser

	logger     *logging.Logger
	rng        *rand.Rand
	documentID string

	phase       Phase
	paths       []path
	rollbacks   int
	attempts    map[int]int
	windowStart int
	notes       []string
}

// New creates a controller. The configuration is validated up front; a bad
// configuration never starts a search.
func New(cfg config.Config, store core.FragmentStore, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New(errors.ConfigurationError, "fragment store is required")
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:         cfg,
		sections:    cloneSections(cfg.Sections),
		store:       store,
		enum:        transition.NewEnumerator(store),
		memory:      memory.NewTable(),
		checkpoints: checkpoint.NewStore(),
		logger:      logging.GetLogger(),
		rng:         rand.New(rand.NewSource(cfg.Engine.Seed)),
		phase:       PhaseInitializing,
		attempts:    make(map[int]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.documentID == "" {
		c.documentID = uuid.NewString()
	}
	return c, nil
}

// Phase reports the controller's current state-machine position.
func (c *Controller) Phase() Phase {
	return c.phase
}

// DocumentID returns the document identifier for this run.
func (c *Controller) DocumentID() string {
	return c.documentID
}

// Run generates the document. It returns the finished document on
// completion, or an error when the configuration proves infeasible, a
// committed invariant breaks, or the context is canceled.
func (c *Controller) Run(ctx context.Context) (*Document, error) {
	ctx = logging.WithDocumentID(ctx, c.documentID)
	c.phase = PhaseInitializing

	first := c.sections[0]
	state := core.NewAssemblyState(c.documentID)
	state.EnterSection(first.Section, first.Speaker)
	c.paths = []path{{state: state, led: ledger.New()}}

	// Checkpoint zero is the initial state, the final rollback target.
	c.capture(ctx, 0)

	for {
		// Cancellation is honored only at decision boundaries, so committed
		// state stays consistent.
		if err := errors.CheckContext(ctx, "assembly decision"); err != nil {
			c.phase = PhaseFailed
			return nil, err
		}

		best := c.bestPath()
		secIdx := c.sectionIndex(best.state.Section)
		guidance := c.sections[secIdx]

		if fragmentsInSection(best.state, guidance.Section) >= guidance.DecisionBudget {
			if secIdx+1 == len(c.sections) {
				break
			}
			next := c.sections[secIdx+1]
			for i := range c.paths {
				c.paths[i].state.EnterSection(next.Section, next.Speaker)
			}
			c.windowStart = len(c.bestPath().state.Utterances)
			continue
		}

		c.phase = PhaseRunning
		merged, err := c.enumerateAll(ctx, guidance)
		if err != nil {
			c.phase = PhaseFailed
			return nil, err
		}

		if len(merged) == 0 {
			if err := c.recoverDeadEnd(ctx); err != nil {
				c.phase = PhaseFailed
				return nil, err
			}
			continue
		}

		sort.SliceStable(merged, func(i, j int) bool { return merged[i].total > merged[j].total })
		merged = c.applyChooser(ctx, merged)

		if err := c.commit(merged); err != nil {
			c.phase = PhaseFailed
			return nil, err
		}

		decisions := c.paths[0].state.Decision
		if decisions%c.cfg.Engine.CheckpointInterval == 0 {
			c.checkpointAndJudge(ctx, decisions)
		}
	}

	c.phase = PhaseComplete
	return c.buildDocument(), nil
}

// enumerateAll runs enumeration and scoring for every path in parallel, then
// flattens results in path order so ranking stays deterministic.
func (c *Controller) enumerateAll(ctx context.Context, guidance core.GuidanceProfile) ([]scored, error) {
	perPath := make([][]scored, len(c.paths))

	p := pool.New().WithErrors().WithContext(ctx)
	for i := range c.paths {
		i := i
		p.Go(func(ctx context.Context) error {
			pt := c.paths[i]
			result, err := c.enum.Enumerate(ctx, pt.state, pt.led, guidance)
			if err != nil {
				return err
			}
			list := make([]scored, 0, len(result.Candidates))
			for _, f := range result.Candidates {
				r := scoring.Score(f, pt.state, guidance, c.memory.Penalty)
				list = append(list, scored{
					pathIndex: i,
					fragment:  f,
					result:    r,
					total:     r.Total,
					closes:    transition.ClosesUtterance(pt.state, f, guidance),
				})
			}
			perPath[i] = list
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var merged []scored
	for _, list := range perPath {
		merged = append(merged, list...)
	}
	// Jitter is applied sequentially in flatten order so a fixed seed yields
	// an identical ranking.
	if j := c.cfg.Engine.ExplorationJitter; j > 0 {
		for i := range merged {
			merged[i].total += c.rng.Float64() * j
		}
	}
	return merged, nil
}

// applyChooser hands near-tied top candidates to the external chooser and
// promotes its pick to rank one. Far-apart scores never consult the chooser.
func (c *Controller) applyChooser(ctx context.Context, merged []scored) []scored {
	threshold := c.cfg.Engine.EntropyThreshold
	if c.chooser == nil || threshold <= 0 || len(merged) < 2 {
		return merged
	}
	if merged[0].total-merged[1].total >= threshold {
		return merged
	}

	n := chooserShortlistSize
	if len(merged) < n {
		n = len(merged)
	}
	options := make([]core.ChoiceOption, n)
	for i := 0; i < n; i++ {
		options[i] = core.ChoiceOption{
			FragmentID: merged[i].fragment.ID,
			Score:      merged[i].total,
			Preview:    merged[i].fragment.Text,
		}
	}

	windowID := fmt.Sprintf("%s:choice:d%04d", c.documentID, c.paths[0].state.Decision)
	chosen := judge.ChooseBounded(ctx, c.chooser, windowID, options, c.cfg.Judgment.Timeout)
	for i := range merged[:n] {
		if merged[i].fragment.ID == chosen {
			promoted := merged[i]
			copy(merged[1:i+1], merged[:i])
			merged[0] = promoted
			break
		}
	}
	return merged
}

// commit forks the top K candidates into the next beam. Each fork reserves
// its fragment on a private ledger copy; a reservation failure here means an
// enumerated candidate broke the no-reuse rule, which is a precondition bug.
func (c *Controller) commit(merged []scored) error {
	k := c.cfg.Engine.BeamWidth
	next := make([]path, 0, k)
	for _, cand := range merged {
		if len(next) == k {
			break
		}
		src := c.paths[cand.pathIndex]
		st := src.state.Clone()
		ld := src.led.Clone()
		if err := ld.Reserve(cand.fragment.ReuseKey()); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.ConstraintViolation, "enumerated candidate failed reservation at commit"),
				errors.Fields{
					"fragment_id":     cand.fragment.ID,
					"state_signature": core.StateSignature(src.state),
				},
			)
		}
		st.Commit(cand.fragment, cand.result, cand.closes)
		next = append(next, path{state: st, led: ld})
	}
	c.paths = next
	return nil
}

// capture takes a synchronous checkpoint and archives it when an archive is
// wired. The in-memory store is the rollback authority; an archive failure
// degrades to a warning.
func (c *Controller) capture(ctx context.Context, decisions int) int {
	snaps := make([]checkpoint.PathSnapshot, len(c.paths))
	for i, pt := range c.paths {
		snaps[i] = checkpoint.PathSnapshot{State: pt.state, Ledger: pt.led.Snapshot()}
	}
	idx := c.checkpoints.Capture(decisions, snaps, c.memory.Entries())

	if c.archive != nil {
		if snap, err := c.checkpoints.At(idx); err == nil {
			if err := c.archive.Save(ctx, c.documentID, snap); err != nil {
				c.logger.Warn(ctx, "checkpoint archive write failed: %v", err)
			}
		}
	}
	return idx
}

// checkpointAndJudge captures a checkpoint, submits the window committed
// since the previous one, and applies the verdict.
func (c *Controller) checkpointAndJudge(ctx context.Context, decisions int) {
	c.phase = PhaseCheckpointing
	c.capture(ctx, decisions)

	best := c.bestPath()
	start := c.windowStart
	if start > len(best.state.Utterances) {
		start = 0
	}
	window := append([]core.Utterance(nil), best.state.Utterances[start:]...)

	req := core.JudgmentRequest{
		WindowID: fmt.Sprintf("%s:d%04d", c.documentID, decisions),
		Section:  best.state.Section,
		Speaker:  best.state.Speaker,
		Window:   window,
	}
	report := judge.EvaluateBounded(ctx, c.judgment, req, c.cfg.Judgment.Timeout)
	c.notes = append(c.notes, report.Notes...)

	switch report.Verdict {
	case core.VerdictAdjust:
		c.applyAdjustments(ctx, best.state.Section, report)
		c.windowStart = len(best.state.Utterances)
	case core.VerdictRollback:
		c.phase = PhaseRollingBack
		c.restoreFromJudgment(ctx, report)
	default:
		c.windowStart = len(best.state.Utterances)
	}
	c.phase = PhaseRunning
}

// applyAdjustments folds weight deltas and knob changes into the named
// section's guidance, prospectively. Weights never drop below zero.
func (c *Controller) applyAdjustments(ctx context.Context, section string, report *core.JudgmentReport) {
	idx := c.sectionIndex(section)
	g := &c.sections[idx]

	for dim, delta := range report.WeightDeltas {
		switch dim {
		case "semantic_fit":
			g.Weights.SemanticFit = clampWeight(g.Weights.SemanticFit + delta)
		case "voice_fit":
			g.Weights.VoiceFit = clampWeight(g.Weights.VoiceFit + delta)
		case "continuity_coverage":
			g.Weights.ContinuityCoverage = clampWeight(g.Weights.ContinuityCoverage + delta)
		case "novelty_penalty":
			g.Weights.NoveltyPenalty = clampWeight(g.Weights.NoveltyPenalty + delta)
		case "relationship_modifier":
			g.Weights.RelationshipModifier = clampWeight(g.Weights.RelationshipModifier + delta)
		default:
			c.logger.Warn(ctx, "ignoring weight delta for unknown dimension %q", dim)
		}
	}

	for knob, value := range report.KnobChanges {
		switch knob {
		case "grammar":
			switch core.GrammarStrictness(value) {
			case core.GrammarOff, core.GrammarSoft, core.GrammarStrict:
				g.Grammar = core.GrammarStrictness(value)
			default:
				c.logger.Warn(ctx, "ignoring invalid grammar knob value %q", value)
			}
		case "meter":
			switch core.MeterMode(value) {
			case core.MeterOff, core.MeterOn:
				g.Meter = core.MeterMode(value)
			default:
				c.logger.Warn(ctx, "ignoring invalid meter knob value %q", value)
			}
		default:
			c.logger.Warn(ctx, "ignoring unknown knob %q", knob)
		}
	}
}

// recoverDeadEnd rolls the beam back after an empty candidate set. Repeated
// failures at the same checkpoint step back toward checkpoint zero; stepping
// past it means the configuration is infeasible.
func (c *Controller) recoverDeadEnd(ctx context.Context) error {
	c.phase = PhaseRollingBack

	if c.rollbacks >= maxRollbacksPerDocument {
		return c.infeasible()
	}
	idx := c.checkpoints.Len() - 1
	for idx >= 0 && c.attempts[idx] >= rollbackAttemptsPerCheckpoint {
		idx--
	}
	if idx < 0 {
		return c.infeasible()
	}
	c.attempts[idx]++

	snap, err := c.checkpoints.At(idx)
	if err != nil {
		return err
	}

	failed := c.paths
	restored := c.restorePaths(snap)

	// Penalize the first post-checkpoint choice of each failed path: after
	// the restore, the beam re-faces the exact state that signature keys.
	for i, fp := range failed {
		frag := fragmentAtDecision(fp.state, snap.Decision)
		if frag == nil {
			continue
		}
		ref := restored[0]
		if i < len(restored) {
			ref = restored[i]
		}
		c.memory.Record(core.FailureSignature(ref.state, frag.ID), c.cfg.Engine.RollbackPenalty)
	}

	c.paths = restored
	c.rollbacks++
	c.windowStart = len(c.bestPath().state.Utterances)
	c.logger.Warn(ctx, "dead end at decision %d, rolled back to checkpoint %d (decision %d)",
		failedDecision(failed), snap.Index, snap.Decision)
	return nil
}

// restoreFromJudgment rewinds to the checkpoint the verdict names and turns
// its avoid pattern into negative-memory entries.
func (c *Controller) restoreFromJudgment(ctx context.Context, report *core.JudgmentReport) {
	snap, err := c.checkpoints.At(report.TargetCheckpoint)
	if err != nil {
		c.logger.Warn(ctx, "judgment named checkpoint %d which does not exist, accepting instead", report.TargetCheckpoint)
		return
	}

	c.paths = c.restorePaths(snap)
	c.rollbacks++
	c.windowStart = len(c.bestPath().state.Utterances)

	if report.Avoid != nil {
		for _, pt := range c.paths {
			for _, fragID := range report.Avoid.FragmentIDs {
				c.memory.Record(core.FailureSignature(pt.state, fragID), c.cfg.Engine.RollbackPenalty)
			}
		}
	}
	c.logger.Info(ctx, "judgment rollback to checkpoint %d (decision %d)", snap.Index, snap.Decision)
}

func (c *Controller) restorePaths(snap checkpoint.Snapshot) []path {
	forked := snap.Fork()
	restored := make([]path, len(forked))
	for i, ps := range forked {
		led := ledger.New()
		led.Restore(ps.Ledger)
		restored[i] = path{state: ps.State, led: led}
	}
	return restored
}

// infeasible builds the fatal rollback-exhaustion error, carrying the
// last-known obligation deficits for diagnosis.
func (c *Controller) infeasible() error {
	best := c.bestPath()
	deficits := make(map[string]int)
	for _, g := range c.sections {
		hits := best.state.ObligationHits[g.Section]
		for _, o := range g.Obligations {
			if have := hits[o.Family]; have < o.MinHits {
				deficits[g.Section+"/"+o.Family] = o.MinHits - have
			}
		}
	}
	cause := errors.New(errors.DeadEnd, "no legal candidates remain")
	return errors.WithFields(
		errors.Wrap(cause, errors.InfeasibleConfiguration, "rollback exhausted all checkpoints"),
		errors.Fields{
			"deficits":        deficits,
			"state_signature": core.StateSignature(best.state),
			"decision":        best.state.Decision,
		},
	)
}

func (c *Controller) buildDocument() *Document {
	best := c.bestPath()

	var unmet []UnmetObligation
	for _, g := range c.sections {
		hits := best.state.ObligationHits[g.Section]
		for _, o := range g.Obligations {
			if have := hits[o.Family]; have < o.MinHits {
				unmet = append(unmet, UnmetObligation{
					Section:  g.Section,
					Family:   o.Family,
					Required: o.MinHits,
					Achieved: have,
				})
			}
		}
	}

	return &Document{
		DocumentID:       c.documentID,
		Phase:            c.phase,
		Utterances:       append([]core.Utterance(nil), best.state.Utterances...),
		Provenance:       buildProvenance(best.state.Utterances),
		Score:            best.state.Score,
		Decisions:        best.state.Decision,
		Checkpoints:      c.checkpoints.Len(),
		Rollbacks:        c.rollbacks,
		UnmetObligations: unmet,
		JudgmentNotes:    c.notes,
	}
}

// bestPath returns the highest-scoring path, first on ties.
func (c *Controller) bestPath() path {
	best := c.paths[0]
	for _, pt := range c.paths[1:] {
		if pt.state.Score > best.state.Score {
			best = pt
		}
	}
	return best
}

func (c *Controller) sectionIndex(section string) int {
	for i, g := range c.sections {
		if g.Section == section {
			return i
		}
	}
	return 0
}

func cloneSections(sections []core.GuidanceProfile) []core.GuidanceProfile {
	out := make([]core.GuidanceProfile, len(sections))
	for i, g := range sections {
		g.Obligations = append([]core.Obligation(nil), g.Obligations...)
		out[i] = g
	}
	return out
}

func fragmentsInSection(state *core.AssemblyState, section string) int {
	n := 0
	for _, u := range state.Utterances {
		if u.Section == section {
			n += len(u.Fragments)
		}
	}
	return n
}

// fragmentAtDecision returns the n-th committed fragment (zero-based), or nil
// when the path has at most n fragments.
func fragmentAtDecision(state *core.AssemblyState, n int) *core.Fragment {
	i := 0
	for _, u := range state.Utterances {
		for _, f := range u.Fragments {
			if i == n {
				copied := f
				return &copied
			}
			i++
		}
	}
	return nil
}

func failedDecision(paths []path) int {
	if len(paths) == 0 {
		return 0
	}
	return paths[0].state.Decision
}

func clampWeight(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
