package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/engine"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages client-facing ticket endpoints.
type TicketsHandler struct {
	engine *engine.Engine
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(eng *engine.Engine) *TicketsHandler {
	return &TicketsHandler{engine: eng}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SectorID == "" {
		return apperrors.NewValidationError("sector_id required", nil)
	}

	ticket, err := h.engine.Create(c.UserContext(), actor, engine.CreateInput{
		Description: req.Description,
		SectorID:    req.SectorID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
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

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
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

// AddComment POST /tickets/:id/comments. Clients always post public
// comments; a requested visibility other than PUBLIC is rejected in the
// engine.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
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
