package handlers

import (
	"fmt"
	"time"

	"freshharvest/internal/middleware"
	"freshharvest/internal/models"
	"freshharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// RegisterRoutes registers the order routes. Every order route requires auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	staff := middleware.RequireRoles(models.RoleVendor, models.RoleAdmin)

	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/mine", h.HandleGetMyOrders)
	orderRoutes.Get("/vendor", staff, h.HandleGetVendorOrders)
	orderRoutes.Get("/stats/sales", staff, h.HandleGetSalesStats)
	orderRoutes.Get("/admin/all", middleware.RequireRoles(models.RoleAdmin), h.HandleGetAllOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", staff, h.HandleUpdateOrderStatus)
}

// HandleCreateOrder places an order for the caller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var req services.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.logger, err)
	}

	order, err := h.service.PlaceOrder(c.UserContext(), actor, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"order":   order,
	})
}

// HandleGetMyOrders lists the caller's own orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.service.ListMyOrders(c.UserContext(), actor, c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// HandleGetVendorOrders lists orders containing the caller's products.
// Admins may pass ?vendor= to look at one vendor.
func (h *OrderHandler) HandleGetVendorOrders(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.service.ListVendorOrders(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// HandleGetAllOrders lists every order. Admin only.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.service.ListAllOrders(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

func listQuery(c *fiber.Ctx) services.OrderListQuery {
	return services.OrderListQuery{
		Status:   models.OrderStatus(c.Query("status")),
		VendorID: c.Query("vendor"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", services.DefaultPageSize),
	}
}

// HandleGetSalesStats aggregates sales over ?period=week|month|year.
func (h *OrderHandler) HandleGetSalesStats(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	stats, err := h.service.SalesStats(c.UserContext(), actor, c.Query("period", services.PeriodMonth))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(stats)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	order, err := h.service.GetOrder(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(order)
}

type statusUpdateRequest struct {
	OrderStatus       string `json:"orderStatus"`
	PaymentStatus     string `json:"paymentStatus"`
	TrackingNumber    string `json:"trackingNumber"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	orderID := c.Params("id")

	var body statusUpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, h.logger, err)
	}

	update := models.StatusUpdate{
		OrderStatus:    models.OrderStatus(body.OrderStatus),
		PaymentStatus:  models.PaymentStatus(body.PaymentStatus),
		TrackingNumber: body.TrackingNumber,
	}
	if body.EstimatedDelivery != "" {
		t, err := parseDate(body.EstimatedDelivery)
		if err != nil {
			return invalidParam(c, "estimatedDelivery", err.Error())
		}
		update.EstimatedDelivery = &t
	}

	order, err := h.service.SetStatus(c.UserContext(), actor, orderID, update)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s status updated successfully to %s", orderID, order.OrderStatus),
		"order":   order,
	})
}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("Field 'estimatedDelivery' must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return t, nil
}
