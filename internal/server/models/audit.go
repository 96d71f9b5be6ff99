package models

// Audit actions. One mutating custody operation maps to exactly one action.
const (
	ActionCreate       = "Create"
	ActionStatusChange = "StatusChange"
	ActionPickup       = "Pickup"
	ActionDelete       = "Delete"
)

// AuditRecord is one immutable entry of the append-only activity log.
// Timestamp is creation-ordered and unique enough to sort by.
type AuditRecord struct {
	Timestamp      string `json:"timestamp"`
	Actor          string `json:"actor"`
	Action         string `json:"action"`
	SubjectSummary string `json:"subjectSummary"`
}
