package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/msgguard/msgguard/internal/metrics"
	"github.com/msgguard/msgguard/internal/ratelimit"
	"github.com/msgguard/msgguard/internal/risk"
	"github.com/msgguard/msgguard/internal/sse"
)

const maxRequestBody = 1 << 20

// VerdictHandler serves the text and URL prediction endpoints.
type VerdictHandler struct {
	engine  *risk.Engine
	hub     *sse.Hub
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewVerdictHandler creates a VerdictHandler. hub and limiter may be nil.
func NewVerdictHandler(engine *risk.Engine, hub *sse.Hub, limiter *ratelimit.Limiter, logger *slog.Logger) *VerdictHandler {
	return &VerdictHandler{engine: engine, hub: hub, limiter: limiter, logger: logger}
}

// Predict handles POST /predict and POST /v1/classify.
func (vh *VerdictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if vh.limiter != nil && vh.limiter.Check(w, r, "classify") {
		return
	}

	var in risk.TextInput
	if err := decode(w, r, &in); err != nil {
		vh.fail(w, r, metrics.PipelineText, err)
		return
	}

	start := time.Now()
	v, err := vh.engine.ClassifyText(r.Context(), in)
	if err != nil {
		vh.fail(w, r, metrics.PipelineText, err)
		return
	}
	metrics.ObserveText(v, time.Since(start))
	if vh.hub != nil {
		vh.hub.PublishJSON(sse.TopicText, "verdict", v)
	}
	writeJSON(w, http.StatusOK, v)
}

// PredictMalware handles POST /predict-malware and POST /v1/assess-url.
func (vh *VerdictHandler) PredictMalware(w http.ResponseWriter, r *http.Request) {
	if vh.limiter != nil && vh.limiter.Check(w, r, "malware") {
		return
	}

	var in risk.URLInput
	if err := decode(w, r, &in); err != nil {
		vh.fail(w, r, metrics.PipelineURL, err)
		return
	}

	start := time.Now()
	v, err := vh.engine.AssessURL(r.Context(), in)
	if err != nil {
		vh.fail(w, r, metrics.PipelineURL, err)
		return
	}
	metrics.ObserveURL(v, time.Since(start))
	if vh.hub != nil {
		vh.hub.PublishJSON(sse.TopicURL, "malware_verdict", v)
	}
	writeJSON(w, http.StatusOK, v)
}

func (vh *VerdictHandler) fail(w http.ResponseWriter, r *http.Request, pipeline string, err error) {
	code := StatusFor(err)
	metrics.ObserveError(pipeline, err)
	if code >= http.StatusInternalServerError {
		vh.logger.Error("pipeline failed", "pipeline", pipeline, "path", r.URL.Path, "err", err)
	} else {
		vh.logger.Warn("pipeline rejected request", "pipeline", pipeline, "path", r.URL.Path, "err", err)
	}
	pipelineError(w, err.Error(), pipeline, code)
}

// decode reads a JSON body into dst. Malformed JSON is reported as invalid input.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", risk.ErrInvalidInput, err)
	}
	return nil
}
