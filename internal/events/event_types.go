package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketClaimed   EventType = "ticket_claimed"
	EventTicketForwarded EventType = "ticket_forwarded"
	EventTicketResolved  EventType = "ticket_resolved"
	EventTicketReopened  EventType = "ticket_reopened"
	EventTicketCommented EventType = "ticket_commented"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	SectorID    string `json:"sector_id"`
	Description string `json:"description"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	AssigneeID string `json:"assignee_id"`
	SectorID   string `json:"sector_id"`
}

// TicketForwardedPayload payload.
type TicketForwardedPayload struct {
	OldSectorID string `json:"old_sector_id"`
	NewSectorID string `json:"new_sector_id"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	ClearedAssigneeID *string `json:"cleared_assignee_id,omitempty"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID  string                   `json:"comment_id"`
	Visibility domain.CommentVisibility `json:"visibility"`
}
