package handlers

import (
	"strconv"

	"freshharvest/internal/middleware"
	"freshharvest/internal/models"
	"freshharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service *services.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// RegisterRoutes registers the product routes. Browsing is public; changes
// require auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	staff := middleware.RequireRoles(models.RoleVendor, models.RoleAdmin)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/vendor/mine", auth, staff, h.HandleGetVendorProducts)
	productRoutes.Get("/vendor/:vendorId", auth, staff, h.HandleGetProductsByVendor)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", auth, staff, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, staff, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, staff, h.HandleDeleteProduct)
	productRoutes.Put("/:id/status", auth, middleware.RequireRoles(models.RoleAdmin), h.HandleSetProductStatus)
}

// HandleGetProducts lists active products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	q := services.ProductListQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", services.DefaultPageSize),
	}

	var err error
	if q.MinPrice, err = priceParam(c, "minPrice"); err != nil {
		return invalidParam(c, "minPrice", "Field 'minPrice' must be a number")
	}
	if q.MaxPrice, err = priceParam(c, "maxPrice"); err != nil {
		return invalidParam(c, "maxPrice", "Field 'maxPrice' must be a number")
	}

	page, err := h.service.ListProducts(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

func priceParam(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HandleGetVendorProducts lists the caller's own products, including inactive ones.
func (h *ProductHandler) HandleGetVendorProducts(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.service.ListVendorProducts(c.UserContext(), actor, c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// HandleGetProductsByVendor lists every product of a vendor. Vendors may
// only list their own.
func (h *ProductHandler) HandleGetProductsByVendor(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	page, err := h.service.ListProductsByVendor(c.UserContext(), actor, c.Params("vendorId"),
		c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// HandleGetProductByID retrieves a single active product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product owned by the caller.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, h.logger, err)
	}

	product, err := h.service.CreateProduct(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, h.logger, err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), actor, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	if err := h.service.DeleteProduct(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}

type productStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// HandleSetProductStatus activates or deactivates a product.
func (h *ProductHandler) HandleSetProductStatus(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)

	var body productStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, h.logger, err)
	}
	if body.IsActive == nil {
		return invalidParam(c, "isActive", "Field 'isActive' failed on the 'required' tag")
	}

	product, err := h.service.SetProductActive(c.UserContext(), actor, c.Params("id"), *body.IsActive)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product status updated successfully",
		"product": product,
	})
}
