package domain

import "time"

// CommentVisibility differentiates public replies from technician notes.
type CommentVisibility string

const (
	CommentVisibilityPublic   CommentVisibility = "PUBLIC"
	CommentVisibilityInternal CommentVisibility = "INTERNAL"
)

// TicketComment captures an entry in a ticket's thread. Internal comments
// are never shown to the reporting client.
type TicketComment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Visibility CommentVisibility
	Body       string
	CreatedAt  time.Time
}
