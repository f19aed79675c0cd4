package services

import (
	"context"
	"fmt"
	"time"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"
	"freshharvest/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	recentOrderCount = 5
	topVendorCount   = 5
)

// DashboardService computes the store-wide figures shown to admins.
type DashboardService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// DashboardOption customises a DashboardService.
type DashboardOption func(*DashboardService)

// WithDashboardClock sets the time source the reporting windows start from.
func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	logger zerolog.Logger,
	opts ...DashboardOption,
) *DashboardService {
	s := &DashboardService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "dashboard").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats summarises accounts, catalog and orders. "This month" starts on the
// first day of the current calendar month; revenue counts sales of all time.
func (s *DashboardService) Stats(ctx context.Context, actor authz.Actor) (*models.DashboardStats, error) {
	if err := authz.Require(actor, authz.ActionViewDashboard, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	monthStart := startOfMonth(s.now())
	stats := &models.DashboardStats{}

	var err error
	if stats.Users.Total, err = s.userRepo.Count(ctx, models.UserFilter{Role: models.RoleUser}); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.Users.Vendors, err = s.userRepo.Count(ctx, models.UserFilter{Role: models.RoleVendor}); err != nil {
		return nil, fmt.Errorf("failed to count vendors: %w", err)
	}
	if stats.Users.NewThisMonth, err = s.userRepo.Count(ctx, models.UserFilter{Role: models.RoleUser, CreatedSince: monthStart}); err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	if stats.Products.Total, err = s.productRepo.Count(ctx, models.ProductFilter{}); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if stats.Products.Active, err = s.productRepo.Count(ctx, models.ProductFilter{ActiveOnly: true}); err != nil {
		return nil, fmt.Errorf("failed to count active products: %w", err)
	}
	if stats.Products.ByCategory, err = s.productRepo.CountByCategory(ctx); err != nil {
		return nil, fmt.Errorf("failed to count products by category: %w", err)
	}
	if stats.Products.ByCategory == nil {
		stats.Products.ByCategory = []models.CategoryCount{}
	}

	all, err := s.orderRepo.Summarize(ctx, models.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize orders: %w", err)
	}
	thisMonth, err := s.orderRepo.Summarize(ctx, models.OrderFilter{Since: monthStart})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize this month's orders: %w", err)
	}
	sales, err := s.orderRepo.Summarize(ctx, models.OrderFilter{Statuses: models.SalesStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sales: %w", err)
	}
	stats.Orders = models.OrderCounts{
		Total:     all.Count,
		ThisMonth: thisMonth.Count,
		Revenue:   roundCents(sales.Revenue),
	}

	recent, _, err := s.orderRepo.List(ctx, models.OrderFilter{Limit: recentOrderCount})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	if stats.RecentOrders, err = populateOrders(ctx, s.productRepo, s.userRepo, recent); err != nil {
		return nil, err
	}
	return stats, nil
}

// Overview reports order activity over the trailing 7 and 30 days and the
// vendors with the highest sales of all time.
func (s *DashboardService) Overview(ctx context.Context, actor authz.Actor) (*models.SystemOverview, error) {
	if err := authz.Require(actor, authz.ActionViewDashboard, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	now := s.now()

	weekly, err := s.window(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	monthly, err := s.window(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}

	sales, err := s.orderRepo.VendorSales(ctx, models.OrderFilter{Statuses: models.SalesStatuses}, topVendorCount)
	if err != nil {
		return nil, fmt.Errorf("failed to rank vendors: %w", err)
	}
	vendorIDs := make([]string, 0, len(sales))
	for _, vs := range sales {
		vendorIDs = append(vendorIDs, vs.VendorID)
	}
	vendors, err := s.userRepo.GetByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load top vendors: %w", err)
	}
	byID := make(map[string]*models.UserSummary, len(vendors))
	for i := range vendors {
		byID[vendors[i].ID] = vendors[i].Summary()
	}

	top := make([]models.TopVendor, 0, len(sales))
	for _, vs := range sales {
		top = append(top, models.TopVendor{
			Vendor:     byID[vs.VendorID],
			TotalSales: roundCents(vs.TotalSales),
			OrderCount: vs.OrderCount,
		})
	}
	s.logger.Debug().
		Int64("weekly_orders", weekly.Orders).
		Int64("monthly_orders", monthly.Orders).
		Int("top_vendors", len(top)).
		Msg("system overview computed")
	return &models.SystemOverview{Weekly: weekly, Monthly: monthly, TopVendors: top}, nil
}

// window counts every order placed since start and sums the sales among them.
func (s *DashboardService) window(ctx context.Context, start time.Time) (models.PeriodStats, error) {
	placed, err := s.orderRepo.Summarize(ctx, models.OrderFilter{Since: start})
	if err != nil {
		return models.PeriodStats{}, fmt.Errorf("failed to count orders since %s: %w", start.Format(time.RFC3339), err)
	}
	sold, err := s.orderRepo.Summarize(ctx, models.OrderFilter{Since: start, Statuses: models.SalesStatuses})
	if err != nil {
		return models.PeriodStats{}, fmt.Errorf("failed to sum sales since %s: %w", start.Format(time.RFC3339), err)
	}
	return models.PeriodStats{Orders: placed.Count, Revenue: roundCents(sold.Revenue)}, nil
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
