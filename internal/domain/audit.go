package domain

import "time"

// AuditChangeKind captures what changed in an audit entry.
type AuditChangeKind string

const (
	AuditChangeStatus   AuditChangeKind = "STATUS_CHANGE"
	AuditChangeAssignee AuditChangeKind = "ASSIGNEE_CHANGE"
	AuditChangeSector   AuditChangeKind = "SECTOR_CHANGE"
)

// AuditEntry is an immutable record of a ticket transition.
type AuditEntry struct {
	ID         string
	TicketID   string
	ActorID    string
	ChangeKind AuditChangeKind
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
