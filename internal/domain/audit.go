package domain

import "time"

// AuditAction enumerates the security-relevant events recorded by the audit
// trail. Consumers rely on these values verbatim.
type AuditAction string

const (
	ActionLoginFailed        AuditAction = "LOGIN_FAILED"
	ActionLoginSuccess       AuditAction = "LOGIN_SUCCESS"
	ActionLogout             AuditAction = "LOGOUT"
	ActionSecurityAlert      AuditAction = "SECURITY_ALERT"
	ActionAPICallSuccess     AuditAction = "API_CALL_SUCCESS"
	ActionAPICallFailed      AuditAction = "API_CALL_FAILED"
	ActionUnauthorizedAccess AuditAction = "UNAUTHORIZED_ACCESS"
)

// Sentinel user ids for entries that have no authenticated subject.
const (
	AuditUserAnonymous = "anonymous"
	AuditUserSystem    = "system"
)

// AuditEntry is an immutable record of a single security event. Entries are
// created once and never updated or deleted; retention is an external concern.
type AuditEntry struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Action    AuditAction    `json:"action" db:"action"`
	Details   map[string]any `json:"details" db:"details"`
	IPAddress string         `json:"ip_address" db:"ip_address"`
	UserAgent string         `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
