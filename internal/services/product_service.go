package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"
	"freshharvest/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required,oneof=fruit-juice dry-fruits"`
	Subcategory string   `json:"subcategory" validate:"omitempty,max=100"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Unit        string   `json:"unit" validate:"required,oneof=g kg ml l pack piece"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
	// VendorID is only honoured for admins; a vendor always owns what they create.
	VendorID string `json:"vendorId"`
}

// ProductListQuery selects a page of the public catalog.
type ProductListQuery struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	Limit    int
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	userRepo repositories.UserRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, userRepo repositories.UserRepository, logger zerolog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		userRepo: userRepo,
		validate: newValidator(),
		logger:   logger.With().Str("service", "product").Logger(),
	}
}

// ListProducts returns a page of active products.
func (s *ProductService) ListProducts(ctx context.Context, q ProductListQuery) (*models.ProductPage, error) {
	if q.Category != "" && q.Category != models.CategoryFruitJuice && q.Category != models.CategoryDryFruits {
		return nil, invalidField("category", fmt.Sprintf("Unknown category '%s'", q.Category))
	}
	return s.listPage(ctx, models.ProductFilter{
		Category:   q.Category,
		Search:     q.Search,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		ActiveOnly: true,
	}, q.Page, q.Limit)
}

// ListVendorProducts returns every product owned by actor, active or not.
func (s *ProductService) ListVendorProducts(ctx context.Context, actor authz.Actor, page, limit int) (*models.ProductPage, error) {
	if err := authz.Require(actor, authz.ActionCreateProduct, authz.Resource{}, "Access denied. Vendor or admin only."); err != nil {
		return nil, err
	}
	return s.listPage(ctx, models.ProductFilter{VendorID: actor.ID}, page, limit)
}

// ListProductsByVendor returns every product of vendorID, active or not.
// Admins may list any vendor; vendors only themselves.
func (s *ProductService) ListProductsByVendor(ctx context.Context, actor authz.Actor, vendorID string, page, limit int) (*models.ProductPage, error) {
	if err := authz.Require(actor, authz.ActionListVendorCatalog, authz.Resource{VendorID: vendorID}, "Access denied. You can only list your own products."); err != nil {
		return nil, err
	}
	return s.listPage(ctx, models.ProductFilter{VendorID: vendorID}, page, limit)
}

func (s *ProductService) listPage(ctx context.Context, filter models.ProductFilter, page, limit int) (*models.ProductPage, error) {
	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &models.ProductPage{
		Products: products,
		Pagination: models.ProductPagination{
			CurrentPage:   page,
			TotalPages:    int(math.Ceil(float64(total) / float64(limit))),
			TotalProducts: total,
		},
	}, nil
}

// GetProduct returns an active product. Inactive products are reported as
// not found.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, models.NewDomainError(models.KindNotFound, "product with ID %s not found", id)
	}
	return product, nil
}

// CreateProduct adds a product to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, actor authz.Actor, in ProductInput) (*models.Product, error) {
	if err := authz.Require(actor, authz.ActionCreateProduct, authz.Resource{}, "Access denied. Vendor or admin only."); err != nil {
		return nil, err
	}
	if err := validateRequest(s.validate, in); err != nil {
		return nil, err
	}

	vendorID := actor.ID
	if actor.IsAdmin() {
		if in.VendorID == "" {
			return nil, invalidField("vendorId", "Field 'vendorId' is required when an admin creates a product")
		}
		vendor, err := s.userRepo.GetByID(ctx, in.VendorID)
		if err != nil {
			return nil, err
		}
		if vendor.Role != models.RoleVendor {
			return nil, invalidField("vendorId", fmt.Sprintf("Account %s is not a vendor", in.VendorID))
		}
		vendorID = vendor.ID
	}

	now := time.Now()
	product := &models.Product{
		ID:        uuid.New().String(),
		VendorID:  vendorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, in)

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info().Str("product_id", product.ID).Str("vendor_id", vendorID).Msg("product created")
	return product, nil
}

// UpdateProduct overwrites the editable fields of a product. Ownership does
// not change.
func (s *ProductService) UpdateProduct(ctx context.Context, actor authz.Actor, id string, in ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, authz.ActionManageProduct, authz.Resource{Product: product}, "Not authorized to update this product"); err != nil {
		return nil, err
	}
	if err := validateRequest(s.validate, in); err != nil {
		return nil, err
	}

	applyProductInput(product, in)
	product.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return product, nil
}

// DeleteProduct removes a product. Existing orders keep their captured price
// and vendor.
func (s *ProductService) DeleteProduct(ctx context.Context, actor authz.Actor, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionManageProduct, authz.Resource{Product: product}, "Not authorized to delete this product"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.logger.Info().Str("product_id", id).Str("actor_id", actor.ID).Msg("product deleted")
	return nil
}

// SetProductActive activates or deactivates a product. Admin only.
func (s *ProductService) SetProductActive(ctx context.Context, actor authz.Actor, id string, active bool) (*models.Product, error) {
	if err := authz.Require(actor, authz.ActionSetProductStatus, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.IsActive = active
	product.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return product, nil
}

func applyProductInput(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Subcategory = in.Subcategory
	p.Price = in.Price
	p.Stock = in.Stock
	p.Unit = in.Unit
	p.Images = in.Images
	if p.Images == nil {
		p.Images = []string{}
	}
}
