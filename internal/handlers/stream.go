package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/msgguard/msgguard/internal/ratelimit"
	"github.com/msgguard/msgguard/internal/sse"
)

// StreamHandler serves an SSE feed of verdicts as they are produced.
type StreamHandler struct {
	hub       *sse.Hub
	limiter   *ratelimit.Limiter
	keepalive time.Duration
}

// NewStreamHandler creates a new StreamHandler. limiter may be nil.
func NewStreamHandler(hub *sse.Hub, limiter *ratelimit.Limiter) *StreamHandler {
	return &StreamHandler{hub: hub, limiter: limiter, keepalive: 30 * time.Second}
}

// HandleSSE handles GET /v1/stream?pipeline=text|url. Without a pipeline
// parameter both feeds are streamed.
func (sh *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if sh.limiter != nil && sh.limiter.Check(w, r, "stream") {
		return
	}

	pipeline := r.URL.Query().Get("pipeline")
	var textCh, urlCh chan sse.Event
	switch pipeline {
	case sse.TopicText:
		ch, cancel := sh.hub.Subscribe(sse.TopicText)
		defer cancel()
		textCh = ch
	case sse.TopicURL:
		ch, cancel := sh.hub.Subscribe(sse.TopicURL)
		defer cancel()
		urlCh = ch
	case "":
		tc, cancelText := sh.hub.Subscribe(sse.TopicText)
		defer cancelText()
		uc, cancelURL := sh.hub.Subscribe(sse.TopicURL)
		defer cancelURL()
		textCh, urlCh = tc, uc
	default:
		jsonError(w, "pipeline must be text or url", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(sh.keepalive)
	defer keepalive.Stop()

	for {
		var (
			event sse.Event
			ok    bool
		)
		select {
		case <-r.Context().Done():
			return
		case event, ok = <-textCh:
		case event, ok = <-urlCh:
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
			continue
		}
		if !ok {
			return
		}
		fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, event.Data)
		flusher.Flush()
	}
}
