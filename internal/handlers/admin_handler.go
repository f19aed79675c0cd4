package handlers

import (
	"freshharvest/internal/middleware"
	"freshharvest/internal/models"
	"freshharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AdminHandler handles account management and store reporting for admins.
type AdminHandler struct {
	authService      *services.AuthService
	dashboardService *services.DashboardService
	logger           zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *services.AuthService, dashboardService *services.DashboardService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		authService:      authService,
		dashboardService: dashboardService,
		logger:           logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes registers the admin routes; all of them require an admin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	adminRoutes := router.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	adminRoutes.Get("/users", h.HandleListUsers)
	adminRoutes.Post("/users", h.HandleCreateUser)
	adminRoutes.Get("/users/:id", h.HandleGetUser)
	adminRoutes.Put("/users/:id", h.HandleUpdateUser)
	adminRoutes.Delete("/users/:id", h.HandleDeleteUser)
	adminRoutes.Post("/vendors", h.HandleCreateVendor)
	adminRoutes.Get("/dashboard/stats", h.HandleDashboardStats)
	adminRoutes.Get("/system/overview", h.HandleSystemOverview)
}

// HandleListUsers lists accounts, optionally filtered by role and a search
// over name and email.
func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.authService.ListAccounts(c.UserContext(), actor, services.AccountListQuery{
		Role:   models.Role(c.Query("role")),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", services.DefaultPageSize),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// HandleCreateUser opens an account with any role.
func (h *AdminHandler) HandleCreateUser(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var req services.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.logger, err)
	}

	user, err := h.authService.CreateAccount(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

// HandleGetUser returns an account by its ID.
func (h *AdminHandler) HandleGetUser(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	user, err := h.authService.GetAccount(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(user)
}

// HandleUpdateUser changes an account's profile, role or activation.
func (h *AdminHandler) HandleUpdateUser(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var req services.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.logger, err)
	}

	user, err := h.authService.UpdateAccount(c.UserContext(), actor, c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

// HandleDeleteUser removes an account other than the caller's.
func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	if err := h.authService.DeleteAccount(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// HandleCreateVendor opens a vendor account.
func (h *AdminHandler) HandleCreateVendor(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.logger, err)
	}

	vendor, err := h.authService.CreateVendor(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Vendor created successfully",
		"vendor":  vendor,
	})
}

// HandleDashboardStats returns the store-wide counters.
func (h *AdminHandler) HandleDashboardStats(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	stats, err := h.dashboardService.Stats(c.UserContext(), actor)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(stats)
}

// HandleSystemOverview returns trailing-window activity and the top vendors.
func (h *AdminHandler) HandleSystemOverview(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	overview, err := h.dashboardService.Overview(c.UserContext(), actor)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(overview)
}
