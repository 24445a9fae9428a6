package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/msgguard/msgguard/internal/risk"
)

const defaultClaudePrompt = `You are an SMS and email spam filter. Classify the user's message and respond with a JSON object:
{"label": "SPAM" | "SAFE", "spam_probability": 0.0-1.0}

spam_probability is the probability that the message is unsolicited, promotional or a scam. Only respond with the JSON object, no other text.`

// emptyMessage stands in for blank input, which the Messages API rejects.
const emptyMessage = "(empty message)"

// ClaudeOptions configures the Claude classifier.
type ClaudeOptions struct {
	Model  string
	APIKey string // direct API access; Bedrock is used when empty
	Prompt string
}

// Claude classifies messages with Claude, either through the Anthropic API or
// AWS Bedrock.
type Claude struct {
	client anthropic.Client
	model  string
	prompt string
	logger *slog.Logger
}

// NewClaude creates a Claude classifier.
func NewClaude(ctx context.Context, opts ClaudeOptions, logger *slog.Logger) (*Claude, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: claude model not configured", risk.ErrClassifierUnavailable)
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = defaultClaudePrompt
	}

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	} else {
		reqOpts = append(reqOpts, bedrock.WithLoadDefaultConfig(ctx))
	}

	return &Claude{
		client: anthropic.NewClient(reqOpts...),
		model:  opts.Model,
		prompt: prompt,
		logger: logger,
	}, nil
}

// Classify implements risk.Classifier.
func (c *Claude) Classify(ctx context.Context, text string) (risk.Classification, error) {
	if strings.TrimSpace(text) == "" {
		text = emptyMessage
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 100,
		System: []anthropic.TextBlockParam{
			{Text: c.prompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("claude classify failed", "err", err, "elapsed", elapsed)
		return risk.Classification{}, fmt.Errorf("%w: claude api: %v", risk.ErrClassifierUnavailable, err)
	}
	if len(message.Content) == 0 {
		return risk.Classification{}, fmt.Errorf("%w: empty claude response", risk.ErrClassifierUnavailable)
	}

	c.logger.Debug("claude classify", "elapsed", elapsed)
	return parseReply(strings.TrimSpace(message.Content[0].Text))
}

type reply struct {
	Label           string   `json:"label"`
	SpamProbability *float64 `json:"spam_probability"`
}

// parseReply extracts a classification from an LLM reply that may wrap the
// JSON object in extra text.
func parseReply(content string) (risk.Classification, error) {
	var r reply
	err := json.Unmarshal([]byte(content), &r)
	if err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return risk.Classification{}, fmt.Errorf("%w: no JSON object in classifier reply", risk.ErrClassifierUnavailable)
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
			return risk.Classification{}, fmt.Errorf("%w: parse classifier reply: %v", risk.ErrClassifierUnavailable, err)
		}
	}
	if r.SpamProbability == nil {
		return risk.Classification{}, fmt.Errorf("%w: classifier reply missing spam_probability", risk.ErrClassifierUnavailable)
	}

	var label risk.Label
	switch strings.ToUpper(strings.TrimSpace(r.Label)) {
	case string(risk.LabelSpam):
		label = risk.LabelSpam
	case string(risk.LabelSafe):
		label = risk.LabelSafe
	default:
		return risk.Classification{}, fmt.Errorf("%w: unknown label %q", risk.ErrClassifierUnavailable, r.Label)
	}
	return risk.Classification{Label: label, SpamProbability: *r.SpamProbability}, nil
}
