package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/engine"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TechTicketsHandler manages the technician work queue.
type TechTicketsHandler struct {
	engine *engine.Engine
}

// NewTechTicketsHandler constructs handler.
func NewTechTicketsHandler(eng *engine.Engine) *TechTicketsHandler {
	return &TechTicketsHandler{engine: eng}
}

// ListTickets GET /tech/tickets. Results are always scoped to the
// technician's sector.
func (h *TechTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	tickets, err := h.engine.List(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetTicket GET /tech/tickets/:id.
func (h *TechTicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	ticket, comments, err := h.engine.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments)})
}

// ClaimTicket POST /tech/tickets/:id/claim.
func (h *TechTicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	ticket, err := h.engine.Claim(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ForwardTicket POST /tech/tickets/:id/forward.
func (h *TechTicketsHandler) ForwardTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.ForwardTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SectorID == "" {
		return apperrors.NewValidationError("sector_id required", nil)
	}
	ticket, err := h.engine.Forward(c.UserContext(), actor, c.Params("id"), req.SectorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ResolveTicket POST /tech/tickets/:id/resolve.
func (h *TechTicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	ticket, err := h.engine.Resolve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tech/tickets/:id/comments.
func (h *TechTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	visibility := domain.CommentVisibilityPublic
	if req.Visibility != nil {
		visibility = *req.Visibility
	}
	comment, err := h.engine.AddComment(c.UserContext(), actor, c.Params("id"), req.Body, visibility)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AuditTrail GET /tech/tickets/:id/audit.
func (h *TechTicketsHandler) AuditTrail(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	entries, err := h.engine.AuditTrail(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditResponses(entries)})
}
