package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumeo/auth-core/internal/domain"
)

// Notifier fans a security event out over a publish/subscribe channel.
// It is not authentication-critical; failures are logged and dropped.
type Notifier interface {
	Publish(ctx context.Context, userID string, event string) error
}

// Recorder appends entries to a Store. Audit is best-effort by contract: a
// store failure is logged to the operational log and counted, but it never
// blocks or fails the caller's request.
type Recorder struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	onError  func()
}

// NewRecorder builds a Recorder. notifier may be nil; onError may be nil and
// is invoked once per failed append (metrics hook).
func NewRecorder(store Store, notifier Notifier, logger *zap.Logger, onError func()) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, notifier: notifier, logger: logger, onError: onError}
}

// Record fills in the entry's identity fields and appends it.
func (r *Recorder) Record(ctx context.Context, entry *domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.UserID == "" {
		entry.UserID = domain.AuditUserAnonymous
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Warn("audit write failed",
			zap.String("action", string(entry.Action)),
			zap.String("user_id", entry.UserID),
			zap.Error(err),
		)
		if r.onError != nil {
			r.onError()
		}
	}

	if entry.Action == domain.ActionSecurityAlert && r.notifier != nil {
		event := "security_alert"
		if v, ok := entry.Details["reason"].(string); ok {
			event = v
		}
		if err := r.notifier.Publish(ctx, entry.UserID, event); err != nil {
			r.logger.Warn("audit notification failed",
				zap.String("user_id", entry.UserID),
				zap.Error(err),
			)
		}
	}
}
