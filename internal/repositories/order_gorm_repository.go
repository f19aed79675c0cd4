package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freshharvest/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the order and its items in one transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order and its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// List retrieves matching orders with their items, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(r.filterScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := r.db.WithContext(ctx).
		Scopes(r.filterScope(filter)).
		Preload("Items", preloadItems).
		Order("created_at DESC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *GORMOrderRepository) filterScope(filter models.OrderFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			db = db.Where("user_id = ?", filter.UserID)
		}
		if filter.VendorID != "" {
			sub := r.db.Model(&models.OrderItem{}).Select("order_id").Where("vendor_id = ?", filter.VendorID)
			db = db.Where("id IN (?)", sub)
		}
		if len(filter.Statuses) > 0 {
			db = db.Where("order_status IN ?", filter.Statuses)
		}
		if !filter.Since.IsZero() {
			db = db.Where("created_at >= ?", filter.Since)
		}
		return db
	}
}

// Summarize counts and sums the matching orders in a single query.
func (r *GORMOrderRepository) Summarize(ctx context.Context, filter models.OrderFilter) (models.OrderTotals, error) {
	var totals models.OrderTotals
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Scopes(r.filterScope(filter)).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Scan(&totals).Error
	if err != nil {
		return models.OrderTotals{}, fmt.Errorf("failed to summarize orders: %w", err)
	}
	return totals, nil
}

// VendorSales aggregates order lines per vendor. Columns are qualified since
// both tables are joined.
func (r *GORMOrderRepository) VendorSales(ctx context.Context, filter models.OrderFilter, limit int) ([]models.VendorSales, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("order_items.vendor_id AS vendor_id, " +
			"SUM(order_items.price * order_items.quantity) AS total_sales, " +
			"COUNT(DISTINCT order_items.order_id) AS order_count").
		Joins("JOIN orders ON orders.id = order_items.order_id")
	if filter.UserID != "" {
		query = query.Where("orders.user_id = ?", filter.UserID)
	}
	if filter.VendorID != "" {
		query = query.Where("order_items.vendor_id = ?", filter.VendorID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("orders.order_status IN ?", filter.Statuses)
	}
	if !filter.Since.IsZero() {
		query = query.Where("orders.created_at >= ?", filter.Since)
	}
	query = query.Group("order_items.vendor_id").Order("total_sales DESC, order_items.vendor_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	sales := make([]models.VendorSales, 0)
	if err := query.Scan(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate vendor sales: %w", err)
	}
	return sales, nil
}

// UpdateStatus overwrites the status fields set in update.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error {
	columns := map[string]any{
		"order_status": update.OrderStatus,
		"updated_at":   time.Now(),
	}
	if update.PaymentStatus != "" {
		columns["payment_status"] = update.PaymentStatus
	}
	if update.TrackingNumber != "" {
		columns["tracking_number"] = update.TrackingNumber
	}
	if update.EstimatedDelivery != nil {
		columns["estimated_delivery"] = *update.EstimatedDelivery
	}

	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return orderNotFound(id)
	}
	return nil
}
