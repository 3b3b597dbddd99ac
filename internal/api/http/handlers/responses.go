package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/engine"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func actorFromCtx(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}

func parseTicketQuery(c *fiber.Ctx) engine.ListFilter {
	filter := engine.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if sectorID := c.Query("sector_id"); sectorID != "" {
		filter.SectorID = &sectorID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		Description: ticket.Description,
		Status:      ticket.Status,
		SectorID:    ticket.SectorID,
		ReporterID:  ticket.ReporterID,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.TicketComment) dto.TicketDetailResponse {
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		Comments:       items,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		AuthorRole: comment.AuthorRole,
		Visibility: comment.Visibility,
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
}

func auditResponses(entries []domain.AuditEntry) []dto.AuditEntryResponse {
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			ChangeKind: entry.ChangeKind,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return items
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		SectorID:     user.SectorID,
		SupervisorID: user.SupervisorID,
		Active:       user.Active,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func sectorResponse(sector *domain.Sector) dto.SectorResponse {
	return dto.SectorResponse{
		ID:        sector.ID,
		Name:      sector.Name,
		CreatedAt: sector.CreatedAt,
		UpdatedAt: sector.UpdatedAt,
	}
}
