package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/engine"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminHandler covers account administration, sector management and the
// admin ticket surface (reopen included).
type AdminHandler struct {
	engine   *engine.Engine
	accounts *service.AccountService
	sectors  *service.SectorService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(eng *engine.Engine, accounts *service.AccountService, sectors *service.SectorService) *AdminHandler {
	return &AdminHandler{engine: eng, accounts: accounts, sectors: sectors}
}

// CreateTechnician POST /admin/technicians.
func (h *AdminHandler) CreateTechnician(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.SectorID == "" {
		return apperrors.NewValidationError("name, email, password, sector_id required", nil)
	}
	user, err := h.accounts.CreateTechnician(c.UserContext(), req.Name, req.Email, req.Password, req.SectorID, req.SupervisorID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := repository.UserFilter{}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	if sectorID := c.Query("sector_id"); sectorID != "" {
		filter.SectorID = &sectorID
	}
	if active := c.Query("active"); active != "" {
		flag := active == "true"
		filter.Active = &flag
	}
	users, err := h.accounts.ListUsers(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetUser GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.accounts.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ActivateUser POST /admin/users/:id/activate.
func (h *AdminHandler) ActivateUser(c *fiber.Ctx) error {
	user, err := h.accounts.SetActive(c.UserContext(), c.Params("id"), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// DeactivateUser POST /admin/users/:id/deactivate.
func (h *AdminHandler) DeactivateUser(c *fiber.Ctx) error {
	user, err := h.accounts.SetActive(c.UserContext(), c.Params("id"), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// CreateSector POST /admin/sectors.
func (h *AdminHandler) CreateSector(c *fiber.Ctx) error {
	var req dto.CreateSectorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sector, err := h.sectors.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sectorResponse(sector)})
}

// ListSectors GET /admin/sectors.
func (h *AdminHandler) ListSectors(c *fiber.Ctx) error {
	sectors, err := h.sectors.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SectorResponse, 0, len(sectors))
	for i := range sectors {
		items = append(items, sectorResponse(&sectors[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTickets GET /admin/tickets. Admins see every sector.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
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

// GetTicket GET /admin/tickets/:id.
func (h *AdminHandler) GetTicket(c *fiber.Ctx) error {
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

// ForwardTicket POST /admin/tickets/:id/forward.
func (h *AdminHandler) ForwardTicket(c *fiber.Ctx) error {
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

// ReopenTicket POST /admin/tickets/:id/reopen.
func (h *AdminHandler) ReopenTicket(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return err
	}
	ticket, err := h.engine.Reopen(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AuditTrail GET /admin/tickets/:id/audit.
func (h *AdminHandler) AuditTrail(c *fiber.Ctx) error {
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
