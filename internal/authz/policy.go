// Package authz holds the authorization policy: a pure decision function
// evaluated centrally before every mutating or listing call. It never touches
// storage and has no side effects; all mutation happens in the lifecycle
// engine after a successful check.
package authz

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Action enumerates the operations the policy rules on.
type Action string

const (
	ActionCreate  Action = "create"
	ActionView    Action = "view"
	ActionClaim   Action = "claim"
	ActionForward Action = "forward"
	ActionResolve Action = "resolve"
	ActionReopen  Action = "reopen"
	ActionComment Action = "comment"
)

// CanPerform decides whether the actor may perform the action on the ticket.
// Rules are evaluated in precedence order; first match wins. The ticket is
// nil for ActionCreate, where no ticket exists yet.
func CanPerform(actor domain.Actor, action Action, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return adminAllowed(action)
	case domain.RoleTech:
		return techAllowed(actor, action, ticket)
	case domain.RoleClient:
		return clientAllowed(actor, action, ticket)
	}
	return false
}

// adminAllowed: admins manage users, sectors and escalations, but never act
// as a ticket's assignee. Claim and resolve are assignee work.
func adminAllowed(action Action) bool {
	switch action {
	case ActionClaim, ActionResolve:
		return false
	}
	return true
}

// techAllowed: a technician may act on a ticket that is unassigned (eligible
// for pickup) or assigned to them. Claiming additionally requires the ticket
// to sit in the technician's own sector, and resolving requires holding the
// assignment.
func techAllowed(actor domain.Actor, action Action, ticket *domain.Ticket) bool {
	switch action {
	case ActionCreate, ActionReopen:
		return false
	case ActionClaim:
		if ticket == nil || !ticket.Unassigned() {
			return false
		}
		return actor.SectorID != nil && *actor.SectorID == ticket.SectorID
	case ActionResolve:
		return ticket != nil && ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID
	case ActionView, ActionForward, ActionComment:
		if ticket == nil {
			return false
		}
		if ticket.Unassigned() {
			return true
		}
		return *ticket.AssigneeID == actor.ID
	}
	return false
}

// clientAllowed: clients create tickets and view/comment on their own.
// Status transitions are reserved for technicians and admins.
func clientAllowed(actor domain.Actor, action Action, ticket *domain.Ticket) bool {
	switch action {
	case ActionCreate:
		return true
	case ActionView, ActionComment:
		return ticket != nil && ticket.ReporterID == actor.ID
	}
	return false
}

// Scope narrows ticket listings to what the actor may see. Nil fields mean
// unrestricted on that dimension.
type Scope struct {
	ReporterID *string
	SectorID   *string
}

// ListScope derives the visibility scope applied before any list query.
// Admins see everything, technicians their sector, clients their own
// tickets. The second return is false when the actor may not list at all.
func ListScope(actor domain.Actor) (Scope, bool) {
	switch actor.Role {
	case domain.RoleAdmin:
		return Scope{}, true
	case domain.RoleTech:
		if actor.SectorID == nil {
			return Scope{}, false
		}
		return Scope{SectorID: actor.SectorID}, true
	case domain.RoleClient:
		reporter := actor.ID
		return Scope{ReporterID: &reporter}, true
	}
	return Scope{}, false
}
