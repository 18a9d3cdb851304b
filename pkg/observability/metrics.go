package observability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler wrapping the Prometheus scrape
// endpoint.
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// AuthMetrics is the counter set tracking authentication outcomes.
type AuthMetrics struct {
	Logins        metric.Int64Counter
	Lockouts      metric.Int64Counter
	Refreshes     metric.Int64Counter
	AuditFailures metric.Int64Counter
}

// NewAuthMetrics registers the counters on the global meter provider.
func NewAuthMetrics(serviceName string) (*AuthMetrics, error) {
	meter := otel.Meter(serviceName)

	logins, err := meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}

	lockouts, err := meter.Int64Counter("auth_lockouts_total",
		metric.WithDescription("Accounts locked after repeated failures"))
	if err != nil {
		return nil, err
	}

	refreshes, err := meter.Int64Counter("auth_refreshes_total",
		metric.WithDescription("Token refresh attempts by outcome"))
	if err != nil {
		return nil, err
	}

	auditFailures, err := meter.Int64Counter("auth_audit_write_failures_total",
		metric.WithDescription("Audit entries dropped because the store failed"))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Logins:        logins,
		Lockouts:      lockouts,
		Refreshes:     refreshes,
		AuditFailures: auditFailures,
	}, nil
}

// CountLogin records one login attempt with its outcome label.
func (m *AuthMetrics) CountLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CountRefresh records one refresh attempt with its outcome label.
func (m *AuthMetrics) CountRefresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CountLockout records one lockout trigger.
func (m *AuthMetrics) CountLockout(ctx context.Context) {
	if m == nil {
		return
	}
	m.Lockouts.Add(ctx, 1)
}

// CountAuditFailure records one dropped audit entry.
func (m *AuthMetrics) CountAuditFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.AuditFailures.Add(ctx, 1)
}
