package model

import "time"

// Audit categories drive retention: payment and safety entries are kept far
// longer than generic ones.
type AuditCategory string

const (
	AuditCategoryGeneric AuditCategory = "generic"
	AuditCategoryPayment AuditCategory = "payment"
	AuditCategorySafety  AuditCategory = "safety"
)

// AuditLogEntry is append-only. Actor is empty for system actions (background
// workers, webhook processing).
type AuditLogEntry struct {
	ID         string // ULID, lexicographically time-ordered
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	Category   AuditCategory
	Details    map[string]interface{} // serialized as JSONB
	RequestIP  string
	CreatedAt  time.Time
}
