package repositories

import (
	"context"

	"freshharvest/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// List returns the orders matching filter, newest first, together with
	// the number of matches before Limit/Offset are applied.
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error
	// Summarize counts the orders matching filter and sums their totals.
	// Limit and Offset are ignored.
	Summarize(ctx context.Context, filter models.OrderFilter) (models.OrderTotals, error)
	// VendorSales groups the lines of the orders matching filter by vendor,
	// best selling first, and returns at most limit groups. A filter VendorID
	// keeps only that vendor's lines.
	VendorSales(ctx context.Context, filter models.OrderFilter, limit int) ([]models.VendorSales, error)
}

func orderNotFound(id string) error {
	return models.NewDomainError(models.KindNotFound, "order with ID %s not found", id)
}
