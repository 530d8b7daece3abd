// Package judge integrates external judgment into the search loop: a critic
// that reviews committed windows at checkpoint boundaries and a chooser that
// breaks near-ties. Judgment advises; the engine's hard constraints always
// win.
package judge

import (
	"context"
	"time"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/logging"
)

// acceptReport is the degraded verdict used whenever judgment is absent,
// fails, or times out.
func acceptReport() *core.JudgmentReport {
	return &core.JudgmentReport{Verdict: core.VerdictAccept, TargetCheckpoint: -1}
}

// AcceptAll is the no-judgment implementation: every window is accepted
// unchanged. It also serves as the deterministic stub in tests.
type AcceptAll struct{}

func (AcceptAll) EvaluateWindow(_ context.Context, _ core.JudgmentRequest) (*core.JudgmentReport, error) {
	return acceptReport(), nil
}

// TopScore is the chooser used when no external chooser is wired: it picks
// the highest-scoring option, first listed on ties.
type TopScore struct{}

func (TopScore) Choose(_ context.Context, _ string, options []core.ChoiceOption) (string, error) {
	if len(options) == 0 {
		return "", errors.New(errors.InvalidInput, "chooser received no options")
	}
	best := options[0]
	for _, o := range options[1:] {
		if o.Score > best.Score {
			best = o
		}
	}
	return best.FragmentID, nil
}

// EvaluateBounded consults the judgment with a hard deadline. Any failure,
// malformed verdict, or timeout degrades to accept-unchanged so generation
// never stalls on an unavailable judge.
func EvaluateBounded(ctx context.Context, j core.Judgment, req core.JudgmentRequest, timeout time.Duration) *core.JudgmentReport {
	logger := logging.GetLogger()
	if j == nil {
		return acceptReport()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := j.EvaluateWindow(ctx, req)
	if err != nil {
		logger.Warn(ctx, "judgment unavailable for window %s, accepting unchanged: %v", req.WindowID, err)
		return acceptReport()
	}
	if report == nil {
		return acceptReport()
	}

	switch report.Verdict {
	case core.VerdictAccept, core.VerdictAdjust, core.VerdictRollback:
		return report
	default:
		logger.Warn(ctx, "unknown verdict %q for window %s, accepting unchanged", report.Verdict, req.WindowID)
		return acceptReport()
	}
}

// ChooseBounded consults the chooser with a hard deadline, falling back to
// the highest-scoring option when the chooser fails or names an option not on
// the shortlist.
func ChooseBounded(ctx context.Context, c core.Chooser, windowID string, options []core.ChoiceOption, timeout time.Duration) string {
	logger := logging.GetLogger()
	if len(options) == 0 {
		return ""
	}
	fallback, _ := TopScore{}.Choose(ctx, windowID, options)
	if c == nil {
		return fallback
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	chosen, err := c.Choose(ctx, windowID, options)
	if err != nil {
		logger.Warn(ctx, "chooser unavailable for window %s, falling back to top score: %v", windowID, err)
		return fallback
	}
	for _, o := range options {
		if o.FragmentID == chosen {
			return chosen
		}
	}
	logger.Warn(ctx, "chooser named %q which is not on the shortlist for window %s", chosen, windowID)
	return fallback
}
