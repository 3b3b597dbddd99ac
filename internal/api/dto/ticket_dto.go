package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Description string `json:"description"`
	SectorID    string `json:"sector_id"`
}

// ForwardTicketRequest payload.
type ForwardTicketRequest struct {
	SectorID string `json:"sector_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body       string                    `json:"body"`
	Visibility *domain.CommentVisibility `json:"visibility,omitempty"`
}

// TicketResponse is the ticket view returned by every operation.
type TicketResponse struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	SectorID    string              `json:"sector_id"`
	ReporterID  string              `json:"reporter_id"`
	AssigneeID  *string             `json:"assignee_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TicketDetailResponse adds the comment thread.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID         string                   `json:"id"`
	AuthorID   string                   `json:"author_id"`
	AuthorRole domain.Role              `json:"author_role"`
	Visibility domain.CommentVisibility `json:"visibility"`
	Body       string                   `json:"body"`
	CreatedAt  time.Time                `json:"created_at"`
}

// AuditEntryResponse represents a transition record.
type AuditEntryResponse struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ChangeKind domain.AuditChangeKind `json:"change_kind"`
	OldValue   map[string]any         `json:"old_value"`
	NewValue   map[string]any         `json:"new_value"`
	CreatedAt  time.Time              `json:"created_at"`
}
