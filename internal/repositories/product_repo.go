package repositories

import (
	"context"

	"freshharvest/internal/models"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, filter models.ProductFilter) (int64, error)
	// CountByCategory counts every product per category, ordered by category.
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)

	// DecrementStock removes qty units only if at least qty are in stock.
	// It fails with models.ErrInsufficientStock otherwise and leaves stock
	// untouched.
	DecrementStock(ctx context.Context, id string, qty int) error
	// IncrementStock returns qty units to stock.
	IncrementStock(ctx context.Context, id string, qty int) error
}

func productNotFound(id string) error {
	return models.NewDomainError(models.KindNotFound, "product with ID %s not found", id)
}

func insufficientStock(id string, requested, available int) error {
	return models.NewDomainError(models.KindInsufficientStock,
		"insufficient stock for product %s (requested: %d, available: %d)", id, requested, available)
}
