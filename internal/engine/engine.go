// Package engine implements the ticket lifecycle: the state machine over
// OPEN, IN_PROGRESS, FORWARDED and CLOSED, assignment of tickets to
// technicians, and the authorization re-check preceding every mutation.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// maxTransitionAttempts bounds the optimistic retry loop before a lost race
// surfaces as a conflict.
const maxTransitionAttempts = 3

// TicketCache is an optional read-through cache for ticket views. Mutations
// invalidate; reads may observe slightly stale data.
type TicketCache interface {
	Get(ctx context.Context, id string) (*domain.Ticket, bool)
	Set(ctx context.Context, ticket *domain.Ticket)
	Invalidate(ctx context.Context, id string)
}

// Engine coordinates ticket workflows.
type Engine struct {
	tickets    repository.TicketRepository
	sectors    repository.SectorRepository
	comments   repository.CommentRepository
	audit      repository.AuditRepository
	cache      TicketCache
	dispatcher events.Dispatcher
	now        func() time.Time
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	TicketRepo  repository.TicketRepository
	SectorRepo  repository.SectorRepository
	CommentRepo repository.CommentRepository
	AuditRepo   repository.AuditRepository
	Cache       TicketCache
	Dispatcher  events.Dispatcher
	Clock       func() time.Time
}

// CreateInput describes ticket creation payload.
type CreateInput struct {
	Description string
	SectorID    string
}

// ListFilter describes optional, additive listing filters. The policy's
// visibility scope is applied on top of these.
type ListFilter struct {
	Statuses   []domain.TicketStatus
	SectorID   *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// New constructs the engine.
func New(deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		tickets:    deps.TicketRepo,
		sectors:    deps.SectorRepo,
		comments:   deps.CommentRepo,
		audit:      deps.AuditRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// Create opens a new ticket in the given sector with the actor as reporter.
func (e *Engine) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*domain.Ticket, error) {
	if !authz.CanPerform(actor, authz.ActionCreate, nil) {
		return nil, apperrors.NewForbidden("not allowed to create tickets")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if _, err := e.loadSector(ctx, input.SectorID); err != nil {
		return nil, err
	}

	now := e.now()
	ticket := &domain.Ticket{
		Description: description,
		Status:      domain.TicketStatusOpen,
		SectorID:    input.SectorID,
		ReporterID:  actor.ID,
		AssigneeID:  nil,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			SectorID:    ticket.SectorID,
			Description: ticket.Description,
		},
	})
	return ticket, nil
}

// Claim assigns an unassigned ticket to the acting technician. OPEN and
// FORWARDED tickets are claimable; FORWARDED is treated as
// unassigned-in-new-sector.
func (e *Engine) Claim(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	ticket, err := e.transition(ctx, actor, ticketID, authz.ActionClaim,
		func(t *domain.Ticket) error {
			if t.Status != domain.TicketStatusOpen && t.Status != domain.TicketStatusForwarded {
				return apperrors.NewInvalidTransition("ticket is not claimable", string(t.Status))
			}
			return nil
		},
		func(t *domain.Ticket) {
			oldStatus = t.Status
			assignee := actor.ID
			t.AssigneeID = &assignee
			t.Status = domain.TicketStatusInProgress
		})
	if err != nil {
		return nil, err
	}
	e.recordStatusChange(ctx, actor, ticket.ID, oldStatus, ticket.Status)
	e.recordAssigneeChange(ctx, actor, ticket.ID, nil, ticket.AssigneeID)
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Payload: events.TicketClaimedPayload{
			AssigneeID: actor.ID,
			SectorID:   ticket.SectorID,
		},
	})
	return ticket, nil
}

// Forward escalates a ticket to a different sector, clearing the assignee.
// Allowed from OPEN and IN_PROGRESS; a FORWARDED ticket must be claimed
// before it can be forwarded again.
func (e *Engine) Forward(ctx context.Context, actor domain.Actor, ticketID, newSectorID string) (*domain.Ticket, error) {
	if _, err := e.loadSector(ctx, newSectorID); err != nil {
		return nil, err
	}
	var (
		oldStatus   domain.TicketStatus
		oldSector   string
		oldAssignee *string
	)
	ticket, err := e.transition(ctx, actor, ticketID, authz.ActionForward,
		func(t *domain.Ticket) error {
			if t.Status != domain.TicketStatusOpen && t.Status != domain.TicketStatusInProgress {
				return apperrors.NewInvalidTransition("ticket cannot be forwarded", string(t.Status))
			}
			return nil
		},
		func(t *domain.Ticket) {
			oldStatus = t.Status
			oldSector = t.SectorID
			oldAssignee = t.AssigneeID
			t.SectorID = newSectorID
			t.AssigneeID = nil
			t.Status = domain.TicketStatusForwarded
		})
	if err != nil {
		return nil, err
	}
	e.recordStatusChange(ctx, actor, ticket.ID, oldStatus, ticket.Status)
	e.recordSectorChange(ctx, actor, ticket.ID, oldSector, ticket.SectorID)
	if oldAssignee != nil {
		e.recordAssigneeChange(ctx, actor, ticket.ID, oldAssignee, nil)
	}
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketForwarded,
		TicketID: ticket.ID,
		Payload: events.TicketForwardedPayload{
			OldSectorID: oldSector,
			NewSectorID: newSectorID,
		},
	})
	return ticket, nil
}

// Resolve closes an in-progress ticket. Only its assignee may resolve.
func (e *Engine) Resolve(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	ticket, err := e.transition(ctx, actor, ticketID, authz.ActionResolve,
		func(t *domain.Ticket) error {
			if t.Status != domain.TicketStatusInProgress {
				return apperrors.NewInvalidTransition("only in-progress tickets can be resolved", string(t.Status))
			}
			return nil
		},
		func(t *domain.Ticket) {
			oldStatus = t.Status
			t.Status = domain.TicketStatusClosed
		})
	if err != nil {
		return nil, err
	}
	e.recordStatusChange(ctx, actor, ticket.ID, oldStatus, ticket.Status)
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Payload:  events.TicketResolvedPayload{AssigneeID: actor.ID},
	})
	return ticket, nil
}

// Reopen returns a closed ticket to OPEN and clears the assignee.
// Admin-only and always audited.
func (e *Engine) Reopen(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	var (
		oldStatus   domain.TicketStatus
		oldAssignee *string
	)
	ticket, err := e.transition(ctx, actor, ticketID, authz.ActionReopen,
		func(t *domain.Ticket) error {
			if t.Status != domain.TicketStatusClosed {
				return apperrors.NewInvalidTransition("only closed tickets can be reopened", string(t.Status))
			}
			return nil
		},
		func(t *domain.Ticket) {
			oldStatus = t.Status
			oldAssignee = t.AssigneeID
			t.AssigneeID = nil
			t.Status = domain.TicketStatusOpen
		})
	if err != nil {
		return nil, err
	}
	e.recordStatusChange(ctx, actor, ticket.ID, oldStatus, ticket.Status)
	if oldAssignee != nil {
		e.recordAssigneeChange(ctx, actor, ticket.ID, oldAssignee, nil)
	}
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		Payload:  events.TicketReopenedPayload{ClearedAssigneeID: oldAssignee},
	})
	return ticket, nil
}

// Get fetches a ticket and its comment thread, applying the view policy.
// Internal comments are stripped for clients.
func (e *Engine) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.TicketComment, error) {
	ticket, err := e.loadTicketCached(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !authz.CanPerform(actor, authz.ActionView, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	comments, err := e.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleClient {
		visible := make([]domain.TicketComment, 0, len(comments))
		for _, comment := range comments {
			if comment.Visibility == domain.CommentVisibilityInternal {
				continue
			}
			visible = append(visible, comment)
		}
		comments = visible
	}
	return ticket, comments, nil
}

// List returns tickets the actor may see, with optional additive filters.
func (e *Engine) List(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Ticket, error) {
	scope, ok := authz.ListScope(actor)
	if !ok {
		return nil, apperrors.NewForbidden("not allowed to list tickets")
	}
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		SectorID:   filter.SectorID,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if scope.ReporterID != nil {
		repoFilter.ReporterID = scope.ReporterID
	}
	if scope.SectorID != nil {
		// the technician's sector always wins over a caller-supplied filter
		repoFilter.SectorID = scope.SectorID
	}
	tickets, err := e.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddComment appends an entry to a ticket's thread. Clients may only post
// public comments on their own tickets.
func (e *Engine) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string, visibility domain.CommentVisibility) (*domain.TicketComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	if visibility == "" {
		visibility = domain.CommentVisibilityPublic
	}
	if visibility != domain.CommentVisibilityPublic && visibility != domain.CommentVisibilityInternal {
		return nil, apperrors.NewValidationError("unknown visibility", map[string]any{"visibility": visibility})
	}
	ticket, err := e.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, authz.ActionComment, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if actor.Role == domain.RoleClient && visibility == domain.CommentVisibilityInternal {
		return nil, apperrors.NewForbidden("internal notes are technician-only")
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Visibility: visibility,
		Body:       strings.TrimSpace(body),
	}
	if err := e.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	e.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCommented,
		TicketID: ticket.ID,
		Payload: events.TicketCommentedPayload{
			CommentID:  comment.ID,
			Visibility: comment.Visibility,
		},
	})
	return comment, nil
}

// AuditTrail returns the transition records for a ticket. Restricted to
// technicians and admins with view access.
func (e *Engine) AuditTrail(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.AuditEntry, error) {
	if actor.Role == domain.RoleClient {
		return nil, apperrors.NewForbidden("access denied")
	}
	ticket, err := e.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, authz.ActionView, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := e.audit.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// transition runs a single atomic read-guard-write cycle with bounded
// optimistic retry. The policy is re-checked against the freshly read state
// on every attempt. A guard or policy failure after a lost compare-and-swap
// is reported as a conflict: the caller's view was valid when it acted, the
// state changed underneath it.
func (e *Engine) transition(ctx context.Context, actor domain.Actor, ticketID string, action authz.Action, guard func(*domain.Ticket) error, apply func(*domain.Ticket)) (*domain.Ticket, error) {
	raced := false
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ticket, err := e.loadTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if !authz.CanPerform(actor, action, ticket) {
			if raced {
				return nil, raceConflict(ticketID)
			}
			return nil, apperrors.NewForbidden("access denied")
		}
		if err := guard(ticket); err != nil {
			if raced {
				return nil, raceConflict(ticketID)
			}
			return nil, err
		}

		apply(ticket)
		ticket.UpdatedAt = e.now()

		err = e.tickets.Update(ctx, ticket)
		if err == nil {
			e.invalidate(ctx, ticket.ID)
			return ticket, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			raced = true
			continue
		}
		return nil, apperrors.MapError(err)
	}
	return nil, raceConflict(ticketID)
}

func raceConflict(ticketID string) error {
	return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
}

func (e *Engine) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := e.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (e *Engine) loadTicketCached(ctx context.Context, id string) (*domain.Ticket, error) {
	if e.cache != nil {
		if ticket, ok := e.cache.Get(ctx, id); ok {
			return ticket, nil
		}
	}
	ticket, err := e.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(ctx, ticket)
	}
	return ticket, nil
}

func (e *Engine) loadSector(ctx context.Context, id string) (*domain.Sector, error) {
	sector, err := e.sectors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sector", map[string]any{"sector_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return sector, nil
}

func (e *Engine) invalidate(ctx context.Context, ticketID string) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, ticketID)
	}
}

func (e *Engine) publish(ctx context.Context, actor domain.Actor, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	event.Actor = events.Actor{ID: actor.ID, Role: actor.Role}
	_ = e.dispatcher.Publish(ctx, event)
}

func (e *Engine) recordStatusChange(ctx context.Context, actor domain.Actor, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	e.record(ctx, &domain.AuditEntry{
		TicketID:   ticketID,
		ActorID:    actor.ID,
		ChangeKind: domain.AuditChangeStatus,
		OldValue:   map[string]any{"status": oldStatus},
		NewValue:   map[string]any{"status": newStatus},
	})
}

func (e *Engine) recordAssigneeChange(ctx context.Context, actor domain.Actor, ticketID string, oldAssignee, newAssignee *string) {
	e.record(ctx, &domain.AuditEntry{
		TicketID:   ticketID,
		ActorID:    actor.ID,
		ChangeKind: domain.AuditChangeAssignee,
		OldValue:   map[string]any{"assignee_user_id": oldAssignee},
		NewValue:   map[string]any{"assignee_user_id": newAssignee},
	})
}

func (e *Engine) recordSectorChange(ctx context.Context, actor domain.Actor, ticketID string, oldSector, newSector string) {
	e.record(ctx, &domain.AuditEntry{
		TicketID:   ticketID,
		ActorID:    actor.ID,
		ChangeKind: domain.AuditChangeSector,
		OldValue:   map[string]any{"sector_id": oldSector},
		NewValue:   map[string]any{"sector_id": newSector},
	})
}

func (e *Engine) record(ctx context.Context, entry *domain.AuditEntry) {
	if e.audit == nil {
		return
	}
	_ = e.audit.Create(ctx, entry)
}
