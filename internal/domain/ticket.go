package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusForwarded  TicketStatus = "FORWARDED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Ticket is the aggregate for support requests. ReporterID is immutable
// after creation; AssigneeID is nil until a technician claims the ticket.
// Version backs the compare-and-swap write used for transitions.
type Ticket struct {
	ID          string
	Description string
	Status      TicketStatus
	SectorID    string
	ReporterID  string
	AssigneeID  *string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Unassigned reports whether the ticket is eligible for claiming.
// A FORWARDED ticket counts as unassigned in its new sector.
func (t *Ticket) Unassigned() bool {
	return t.AssigneeID == nil
}
