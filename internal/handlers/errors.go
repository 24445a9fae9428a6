// Package handlers implements the HTTP surface of the verdict service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/msgguard/msgguard/internal/risk"
)

// ErrorBody is the JSON shape of every pipeline failure.
type ErrorBody struct {
	Error    string `json:"error"`
	Pipeline string `json:"pipeline,omitempty"`
}

// StatusFor maps a pipeline error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, risk.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, risk.ErrFetch), errors.Is(err, risk.ErrScoring):
		return http.StatusUnprocessableEntity
	case errors.Is(err, risk.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func pipelineError(w http.ResponseWriter, msg, pipeline string, code int) {
	writeJSON(w, code, ErrorBody{Error: msg, Pipeline: pipeline})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, ErrorBody{Error: msg})
}
