package client

import (
	"time"

	"go.uber.org/zap"
)

// Audit actions emitted by the pipeline. The strings match the server-side
// audit taxonomy so both trails can be consumed together.
const (
	ActionAPICallSuccess     = "API_CALL_SUCCESS"
	ActionAPICallFailed      = "API_CALL_FAILED"
	ActionUnauthorizedAccess = "UNAUTHORIZED_ACCESS"
)

// Event is one pipeline audit record.
type Event struct {
	RequestID string
	Action    string
	Method    string
	URL       string
	Status    int
	Details   map[string]any
	CreatedAt time.Time
}

// Reporter receives pipeline events. Calls are made from fire-and-forget
// goroutines and must never block the caller for long; implementations own
// their error handling.
type Reporter interface {
	Report(event Event)
}

// NopReporter drops every event.
type NopReporter struct{}

func (NopReporter) Report(Event) {}

// LogReporter writes events to a structured log.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(event Event) {
	r.logger.Info("api call",
		zap.String("action", event.Action),
		zap.String("request_id", event.RequestID),
		zap.String("method", event.Method),
		zap.String("url", event.URL),
		zap.Int("status", event.Status),
		zap.Any("details", event.Details),
	)
}
