// Package ws serves verdicts over a WebSocket connection.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/msgguard/msgguard/internal/handlers"
	"github.com/msgguard/msgguard/internal/metrics"
	"github.com/msgguard/msgguard/internal/ratelimit"
	"github.com/msgguard/msgguard/internal/risk"
	"github.com/msgguard/msgguard/internal/sse"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// request is one client frame. Exactly one of Text or URL must be set; ID is
// echoed back so clients can pipeline requests.
type request struct {
	ID   string  `json:"id,omitempty"`
	Text *string `json:"text,omitempty"`
	URL  *string `json:"url,omitempty"`
}

// Manager tracks active WebSocket sessions and answers their frames.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*websocket.Conn
	engine   *risk.Engine
	hub      *sse.Hub
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// NewManager creates a new WebSocket manager. hub and limiter may be nil.
// Each text or url frame counts against the same per-IP bucket as the
// matching REST endpoint.
func NewManager(engine *risk.Engine, hub *sse.Hub, limiter *ratelimit.Limiter, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*websocket.Conn),
		engine:   engine,
		hub:      hub,
		limiter:  limiter,
		logger:   logger,
	}
}

// HandleWS upgrades an HTTP connection to WebSocket and serves it until the
// client disconnects.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = conn
	m.mu.Unlock()
	m.logger.Debug("websocket session opened", "session", id)

	defer func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		conn.Close()
		m.logger.Debug("websocket session closed", "session", id)
	}()

	m.sendJSON(conn, map[string]any{"type": "hello", "session": id})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := m.sendJSON(conn, m.answer(r, msg)); err != nil {
			return
		}
	}
}

func (m *Manager) answer(r *http.Request, msg []byte) map[string]any {
	var req request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorFrame("", "", "malformed JSON frame", http.StatusBadRequest)
	}

	ctx := r.Context()
	switch {
	case req.Text != nil && req.URL == nil:
		if frame, limited := m.rateLimited(r, req.ID, metrics.PipelineText, "classify"); limited {
			return frame
		}
		start := time.Now()
		v, err := m.engine.ClassifyText(ctx, risk.TextInput{Text: req.Text})
		if err != nil {
			metrics.ObserveError(metrics.PipelineText, err)
			return errorFrame(req.ID, metrics.PipelineText, err.Error(), handlers.StatusFor(err))
		}
		metrics.ObserveText(v, time.Since(start))
		if m.hub != nil {
			m.hub.PublishJSON(sse.TopicText, "verdict", v)
		}
		return resultFrame(req.ID, "verdict", v)

	case req.URL != nil && req.Text == nil:
		if frame, limited := m.rateLimited(r, req.ID, metrics.PipelineURL, "malware"); limited {
			return frame
		}
		start := time.Now()
		v, err := m.engine.AssessURL(ctx, risk.URLInput{URL: req.URL})
		if err != nil {
			metrics.ObserveError(metrics.PipelineURL, err)
			return errorFrame(req.ID, metrics.PipelineURL, err.Error(), handlers.StatusFor(err))
		}
		metrics.ObserveURL(v, time.Since(start))
		if m.hub != nil {
			m.hub.PublishJSON(sse.TopicURL, "malware_verdict", v)
		}
		return resultFrame(req.ID, "malware_verdict", v)

	default:
		return errorFrame(req.ID, "", "frame must carry exactly one of text or url", http.StatusBadRequest)
	}
}

func (m *Manager) rateLimited(r *http.Request, id, pipeline, bucketName string) (map[string]any, bool) {
	if m.limiter == nil {
		return nil, false
	}
	bucket, ok := m.limiter.AllowClient(r, bucketName)
	if ok {
		return nil, false
	}
	frame := errorFrame(id, pipeline, "Rate limited", http.StatusTooManyRequests)
	frame["retry_after_seconds"] = int(bucket.Window.Seconds())
	return frame, true
}

// SessionCount returns the number of open sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sendJSON(conn *websocket.Conn, data map[string]any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func resultFrame(id, typ string, v any) map[string]any {
	frame := map[string]any{"type": typ, "result": v}
	if id != "" {
		frame["id"] = id
	}
	return frame
}

func errorFrame(id, pipeline, msg string, code int) map[string]any {
	frame := map[string]any{"type": "error", "error": msg, "status": code}
	if pipeline != "" {
		frame["pipeline"] = pipeline
	}
	if id != "" {
		frame["id"] = id
	}
	return frame
}
