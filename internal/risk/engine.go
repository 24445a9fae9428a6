// Package risk turns classifier and URL-intelligence output into structured,
// explainable verdicts.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Engine assembles verdicts from its collaborators. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	classifier Classifier
	intel      URLIntelligence
	logger     *slog.Logger
}

// NewEngine creates an Engine. Either collaborator may be nil, in which case
// the corresponding pipeline refuses requests.
func NewEngine(classifier Classifier, intel URLIntelligence, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{classifier: classifier, intel: intel, logger: logger}
}

// ClassifyText runs the text pipeline.
func (e *Engine) ClassifyText(ctx context.Context, in TextInput) (*Verdict, error) {
	if err := Validate(in); err != nil {
		return nil, fmt.Errorf("text pipeline: %w", err)
	}
	if e.classifier == nil {
		return nil, fmt.Errorf("text pipeline: %w: no classifier configured", ErrClassifierUnavailable)
	}

	result, err := e.classifier.Classify(ctx, *in.Text)
	if err != nil {
		return nil, fmt.Errorf("text pipeline: %w", err)
	}
	if math.IsNaN(result.SpamProbability) || math.IsInf(result.SpamProbability, 0) {
		return nil, fmt.Errorf("text pipeline: %w: non-finite probability", ErrClassifierUnavailable)
	}

	confidence := ConfidencePercent(result.SpamProbability)
	level, icon := Bucketize(confidence)

	prediction := string(LabelSafe)
	if result.Label == LabelSpam {
		prediction = string(LabelSpam)
	}

	v := &Verdict{
		Prediction: prediction,
		Confidence: confidence,
		Risk:       level,
		Icon:       icon,
		Category:   Categorize(*in.Text),
	}
	e.logger.Debug("text verdict assembled",
		"prediction", v.Prediction, "confidence", v.Confidence, "risk", v.Risk, "category", v.Category)
	return v, nil
}

// AssessURL runs the URL pipeline. The URL is passed through unvalidated and
// collaborator errors are returned without retry.
func (e *Engine) AssessURL(ctx context.Context, in URLInput) (*MalwareVerdict, error) {
	if err := Validate(in); err != nil {
		return nil, fmt.Errorf("url pipeline: %w", err)
	}
	if e.intel == nil {
		return nil, fmt.Errorf("url pipeline: %w: no url intelligence configured", ErrFetch)
	}

	raw, err := e.intel.Fetch(ctx, *in.URL)
	if err != nil {
		return nil, fmt.Errorf("url pipeline: %w", err)
	}
	score, err := e.intel.Score(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("url pipeline: %w", err)
	}

	e.logger.Debug("url verdict assembled",
		"url", *in.URL, "prediction", score.Prediction, "score", score.MalwareScore)
	return &MalwareVerdict{
		URL:        *in.URL,
		Prediction: score.Prediction,
		Score:      score.MalwareScore,
		Confidence: score.Confidence,
		RawData:    raw,
	}, nil
}

// HasClassifier reports whether the text pipeline can serve requests.
func (e *Engine) HasClassifier() bool { return e.classifier != nil }
