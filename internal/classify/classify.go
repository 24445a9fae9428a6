// Package classify provides the text classifiers behind the spam pipeline:
// a pretrained TF-IDF model loaded from disk and a Claude-backed classifier.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msgguard/msgguard/internal/risk"
)

// Backend names accepted by New.
const (
	BackendModel  = "model"
	BackendClaude = "claude"
)

// Options selects and configures a classifier backend.
type Options struct {
	Backend   string
	ModelPath string
	Claude    ClaudeOptions
}

// New builds the configured classifier. It is called once at process start;
// an error means the text pipeline cannot be served.
func New(ctx context.Context, opts Options, logger *slog.Logger) (risk.Classifier, error) {
	switch opts.Backend {
	case "", BackendModel:
		m, err := LoadModel(opts.ModelPath)
		if err != nil {
			return nil, err
		}
		logger.Info("classifier model loaded", "path", opts.ModelPath, "features", m.Features())
		return m, nil
	case BackendClaude:
		c, err := NewClaude(ctx, opts.Claude, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("claude classifier configured", "model", opts.Claude.Model)
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier backend %q", risk.ErrClassifierUnavailable, opts.Backend)
	}
}
