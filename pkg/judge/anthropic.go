package judge

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/logging"
)

const criticPrompt = `You are reviewing a passage assembled entirely from verbatim source fragments.
Judge whether the window reads as coherent dramatic verse for the named speaker.
Respond with a single JSON object:
{"verdict": "accept" | "adjust" | "rollback",
 "weight_deltas": {"semantic_fit": 0.0, "voice_fit": 0.0, "continuity_coverage": 0.0, "novelty_penalty": 0.0, "relationship_modifier": 0.0},
 "knob_changes": {},
 "target_checkpoint": -1,
 "avoid": {"description": "", "fragment_ids": []},
 "notes": []}
Use "adjust" for prospective weight nudges only. Use "rollback" only when the
window has gone wrong enough that recent decisions should be discarded.`

const chooserPrompt = `You are breaking a near-tie between candidate continuations of an assembled
passage. Every option is a verbatim source fragment; you may only pick one of
the listed ids. Respond with a single JSON object:
{"chosen_id": "<id>", "notes": []}`

// Critic is the Anthropic-backed judgment and chooser. Calls are synchronous;
// callers bound them with EvaluateBounded / ChooseBounded.
type Critic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewCritic creates a critic for the given model. The API key falls back to
// ANTHROPIC_API_KEY.
func NewCritic(apiKey, model string) (*Critic, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.ConfigurationError, "API key is required for the anthropic judgment provider")
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Critic{client: &client, model: anthropic.Model(model)}, nil
}

type windowPayload struct {
	WindowID string   `json:"window_id"`
	Section  string   `json:"section"`
	Speaker  string   `json:"speaker"`
	Lines    []string `json:"lines"`
}

// EvaluateWindow submits the committed window and parses the structured
// verdict. Malformed responses are reported as JudgmentUnavailable; the
// caller degrades to accept.
func (c *Critic) EvaluateWindow(ctx context.Context, req core.JudgmentRequest) (*core.JudgmentReport, error) {
	lines := make([]string, 0, len(req.Window))
	for _, u := range req.Window {
		lines = append(lines, u.Text())
	}
	payload, err := json.Marshal(windowPayload{
		WindowID: req.WindowID,
		Section:  req.Section,
		Speaker:  req.Speaker,
		Lines:    lines,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.JudgmentUnavailable, "failed to encode window payload")
	}

	content, err := c.generate(ctx, criticPrompt, string(payload), 512)
	if err != nil {
		return nil, err
	}

	var report core.JudgmentReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.JudgmentUnavailable, "critic response was not valid JSON"),
			errors.Fields{"window_id": req.WindowID},
		)
	}
	logging.GetLogger().Info(ctx, "critic verdict for %s: %s", req.WindowID, report.Verdict)
	return &report, nil
}

type choicePayload struct {
	WindowID string              `json:"window_id"`
	Options  []core.ChoiceOption `json:"options"`
}

type choiceDecision struct {
	ChosenID string   `json:"chosen_id"`
	Notes    []string `json:"notes"`
}

// Choose asks the model to pick one shortlist entry. An off-list or malformed
// answer is an error; the caller falls back to the top score.
func (c *Critic) Choose(ctx context.Context, windowID string, options []core.ChoiceOption) (string, error) {
	payload, err := json.Marshal(choicePayload{WindowID: windowID, Options: options})
	if err != nil {
		return "", errors.Wrap(err, errors.JudgmentUnavailable, "failed to encode choice payload")
	}

	content, err := c.generate(ctx, chooserPrompt, string(payload), 256)
	if err != nil {
		return "", err
	}

	var decision choiceDecision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return "", errors.Wrap(err, errors.JudgmentUnavailable, "chooser response was not valid JSON")
	}
	return decision.ChosenID, nil
}

func (c *Critic) generate(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: c.model,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.JudgmentUnavailable, "anthropic request failed")
	}
	if message == nil || len(message.Content) == 0 {
		return "", errors.New(errors.JudgmentUnavailable, "empty response from anthropic")
	}

	var text string
	if block := message.Content[0]; block.Type == "text" {
		text = block.Text
	}
	if text == "" {
		return "", errors.New(errors.JudgmentUnavailable, "no text block in anthropic response")
	}
	return text, nil
}
