package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"freshharvest/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryOrderRepository is an in-memory implementation of OrderRepository.
type InMemoryOrderRepository struct {
	orders map[string]*models.Order
	mu     sync.RWMutex
}

// NewInMemoryOrderRepository creates a new instance of InMemoryOrderRepository.
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]*models.Order),
	}
}

// Create stores a new order. CreatedAt is kept when already set.
func (r *InMemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

// GetByID returns an order by its ID.
func (r *InMemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}
	return order.Clone(), nil
}

// List returns matching orders, newest first.
func (r *InMemoryOrderRepository) List(_ context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Order, 0)
	for _, o := range r.orders {
		if matchesOrder(o, filter) {
			matched = append(matched, *o.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return paginate(matched, filter.Offset, filter.Limit), total, nil
}

func matchesOrder(o *models.Order, f models.OrderFilter) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.VendorID != "" && !o.HasVendor(f.VendorID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.OrderStatus) {
		return false
	}
	if !f.Since.IsZero() && o.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Summarize counts matching orders and sums their totals.
func (r *InMemoryOrderRepository) Summarize(_ context.Context, filter models.OrderFilter) (models.OrderTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totals models.OrderTotals
	revenue := decimal.Zero
	for _, o := range r.orders {
		if matchesOrder(o, filter) {
			totals.Count++
			revenue = revenue.Add(decimal.NewFromFloat(o.Total))
		}
	}
	totals.Revenue = revenue.InexactFloat64()
	return totals, nil
}

// VendorSales groups the lines of matching orders by vendor.
func (r *InMemoryOrderRepository) VendorSales(_ context.Context, filter models.OrderFilter, limit int) ([]models.VendorSales, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type group struct {
		sales  decimal.Decimal
		orders map[string]struct{}
	}
	groups := make(map[string]*group)
	for _, o := range r.orders {
		if !matchesOrder(o, filter) {
			continue
		}
		for _, item := range o.Items {
			if filter.VendorID != "" && item.VendorID != filter.VendorID {
				continue
			}
			g, ok := groups[item.VendorID]
			if !ok {
				g = &group{orders: make(map[string]struct{})}
				groups[item.VendorID] = g
			}
			g.sales = g.sales.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
			g.orders[o.ID] = struct{}{}
		}
	}

	out := make([]models.VendorSales, 0, len(groups))
	for vendorID, g := range groups {
		out = append(out, models.VendorSales{
			VendorID:   vendorID,
			TotalSales: g.sales.InexactFloat64(),
			OrderCount: int64(len(g.orders)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales > out[j].TotalSales
		}
		return out[i].VendorID < out[j].VendorID
	})
	return paginate(out, 0, limit), nil
}

// UpdateStatus overwrites the status fields set in update.
func (r *InMemoryOrderRepository) UpdateStatus(_ context.Context, id string, update models.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return orderNotFound(id)
	}
	applyStatusUpdate(order, update)
	order.UpdatedAt = time.Now()
	return nil
}

func applyStatusUpdate(order *models.Order, update models.StatusUpdate) {
	order.OrderStatus = update.OrderStatus
	if update.PaymentStatus != "" {
		order.PaymentStatus = update.PaymentStatus
	}
	if update.TrackingNumber != "" {
		order.TrackingNumber = update.TrackingNumber
	}
	if update.EstimatedDelivery != nil {
		t := *update.EstimatedDelivery
		order.EstimatedDelivery = &t
	}
}
