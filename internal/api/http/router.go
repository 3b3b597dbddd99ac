package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles everything route registration needs.
type RouteConfig struct {
	Auth    *auth.AuthMiddleware
	Health  *handlers.HealthHandler
	Account *handlers.AuthHandler
	Tickets *handlers.TicketsHandler
	Tech    *handlers.TechTicketsHandler
	Admin   *handlers.AdminHandler
}

// RegisterRoutes wires the public, client, technician and admin route
// groups.
func RegisterRoutes(app *fiber.App, rc RouteConfig) {
	app.Get("/healthz", rc.Health.Live)
	app.Get("/readyz", rc.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", rc.Account.Register)
	authGroup.Post("/login", rc.Account.Login)

	api.Get("/me", rc.Auth.Handle, auth.RequireAuthenticated(), rc.Account.Me)

	tickets := api.Group("/tickets", rc.Auth.Handle, auth.RequireRole(domain.RoleClient))
	tickets.Post("/", rc.Tickets.CreateTicket)
	tickets.Get("/", rc.Tickets.ListTickets)
	tickets.Get("/:id", rc.Tickets.GetTicket)
	tickets.Post("/:id/comments", rc.Tickets.AddComment)

	tech := api.Group("/tech/tickets", rc.Auth.Handle, auth.RequireRole(domain.RoleTech))
	tech.Get("/", rc.Tech.ListTickets)
	tech.Get("/:id", rc.Tech.GetTicket)
	tech.Post("/:id/claim", rc.Tech.ClaimTicket)
	tech.Post("/:id/forward", rc.Tech.ForwardTicket)
	tech.Post("/:id/resolve", rc.Tech.ResolveTicket)
	tech.Post("/:id/comments", rc.Tech.AddComment)
	tech.Get("/:id/audit", rc.Tech.AuditTrail)

	admin := api.Group("/admin", rc.Auth.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/technicians", rc.Admin.CreateTechnician)
	admin.Get("/users", rc.Admin.ListUsers)
	admin.Get("/users/:id", rc.Admin.GetUser)
	admin.Post("/users/:id/activate", rc.Admin.ActivateUser)
	admin.Post("/users/:id/deactivate", rc.Admin.DeactivateUser)
	admin.Post("/sectors", rc.Admin.CreateSector)
	admin.Get("/sectors", rc.Admin.ListSectors)
	admin.Get("/tickets", rc.Admin.ListTickets)
	admin.Get("/tickets/:id", rc.Admin.GetTicket)
	admin.Post("/tickets/:id/forward", rc.Admin.ForwardTicket)
	admin.Post("/tickets/:id/reopen", rc.Admin.ReopenTicket)
	admin.Get("/tickets/:id/audit", rc.Admin.AuditTrail)
}
