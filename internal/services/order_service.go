package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"freshharvest/internal/authz"
	"freshharvest/internal/models"
	"freshharvest/internal/repositories"
	"freshharvest/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Page size limits for order listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sales statistics periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// EventPublisher delivers order events to a message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// PlaceOrderItem is one requested order line.
type PlaceOrderItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// PlaceOrderRequest is the input of OrderService.PlaceOrder.
type PlaceOrderRequest struct {
	Items           []PlaceOrderItem       `json:"items" validate:"required,min=1,dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod" validate:"required,oneof=cod card upi"`
}

// OrderListQuery selects a page of orders for the vendor and admin listings.
type OrderListQuery struct {
	Status   models.OrderStatus
	VendorID string
	Page     int
	Limit    int
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	publisher   EventPublisher
	pricing     Pricing
	validate    *validator.Validate
	now         func() time.Time
	logger      zerolog.Logger
}

// OrderServiceOption customises an OrderService.
type OrderServiceOption func(*OrderService)

// WithClock sets the time source used for timestamps and stats periods.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// WithPricing replaces DefaultPricing.
func WithPricing(p Pricing) OrderServiceOption {
	return func(s *OrderService) { s.pricing = p }
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case no events are sent.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	publisher EventPublisher,
	logger zerolog.Logger,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		pricing:     DefaultPricing,
		validate:    newValidator(),
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type reservation struct {
	productID string
	quantity  int
}

// PlaceOrder creates an order for actor. Every line is checked and its stock
// reserved in submission order; if any step fails, all stock reserved so far
// is returned before the error is reported.
func (s *OrderService) PlaceOrder(ctx context.Context, actor authz.Actor, req PlaceOrderRequest) (*models.OrderDetail, error) {
	if actor.ID == "" {
		return nil, models.NewDomainError(models.KindUnauthorized, "Authentication required")
	}
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	reserved := make([]reservation, 0, len(req.Items))
	subtotal := decimal.Zero

	for _, line := range req.Items {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			s.release(ctx, reserved)
			return nil, fmt.Errorf("failed to look up product %s: %w", line.ProductID, err)
		}
		if !product.IsActive {
			s.release(ctx, reserved)
			return nil, models.NewDomainError(models.KindUnavailable, "Product %s is not available", product.Name)
		}
		if product.Stock < line.Quantity {
			s.release(ctx, reserved)
			return nil, models.NewDomainError(models.KindInsufficientStock,
				"Insufficient stock for %s. Available: %d", product.Name, product.Stock)
		}

		subtotal = subtotal.Add(lineTotal(product.Price, line.Quantity))
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
			VendorID:  product.VendorID,
		})

		// Another order may have taken the stock since the check above.
		if err := s.productRepo.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			s.release(ctx, reserved)
			return nil, fmt.Errorf("failed to reserve stock for %s: %w", product.Name, err)
		}
		reserved = append(reserved, reservation{productID: product.ID, quantity: line.Quantity})
	}

	quote := s.pricing.Quote(subtotal.InexactFloat64())
	now := s.now()
	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          actor.ID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		ShippingCost:    quote.ShippingCost,
		Total:           quote.Total,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.release(ctx, reserved)
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Int("items", len(order.Items)).
		Float64("total", order.Total).
		Msg("order placed")

	s.publish(rabbitmq.RoutingOrderCreated, order, actor)

	detail, err := s.detail(ctx, order)
	if err != nil {
		// The order exists; only the display join failed.
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to populate placed order")
		return bareDetail(order), nil
	}
	return detail, nil
}

// release returns reserved stock, newest reservation first. It runs even if
// ctx was cancelled; failures are logged since the caller already has an
// error to report.
func (s *OrderService) release(ctx context.Context, reserved []reservation) {
	ctx = context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := s.productRepo.IncrementStock(ctx, r.productID, r.quantity); err != nil {
			s.logger.Error().
				Err(err).
				Str("product_id", r.productID).
				Int("quantity", r.quantity).
				Msg("failed to release reserved stock")
		}
	}
}

// SetStatus overwrites the status fields of an order. Admins may update any
// order, vendors only orders containing one of their lines. Transitions
// between statuses are not restricted.
func (s *OrderService) SetStatus(ctx context.Context, actor authz.Actor, orderID string, update models.StatusUpdate) (*models.OrderDetail, error) {
	if !update.OrderStatus.Valid() {
		return nil, invalidField("orderStatus", fmt.Sprintf("Invalid order status '%s'", update.OrderStatus))
	}
	if update.PaymentStatus != "" && !update.PaymentStatus.Valid() {
		return nil, invalidField("paymentStatus", fmt.Sprintf("Invalid payment status '%s'", update.PaymentStatus))
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, authz.ActionUpdateOrderStatus, authz.Resource{Order: order}, "Not authorized to update this order"); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, update); err != nil {
		return nil, fmt.Errorf("failed to update order status for order %s: %w", orderID, err)
	}

	updated, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %s: %w", orderID, err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("actor_id", actor.ID).
		Str("order_status", string(updated.OrderStatus)).
		Str("payment_status", string(updated.PaymentStatus)).
		Msg("order status updated")

	s.publish(rabbitmq.RoutingOrderStatusUpdated, updated, actor)

	return s.detail(ctx, updated)
}

// SalesStats sums the confirmed, shipped and delivered orders placed since
// the start of period. Vendors only see orders containing their lines; the
// whole order total counts towards their sales.
func (s *OrderService) SalesStats(ctx context.Context, actor authz.Actor, period string) (*models.SalesStats, error) {
	if err := authz.Require(actor, authz.ActionViewSalesStats, authz.Resource{}, "Access denied. Vendor or admin only."); err != nil {
		return nil, err
	}

	start, err := periodStart(period, s.now())
	if err != nil {
		return nil, err
	}

	filter := models.OrderFilter{
		Statuses: models.SalesStatuses,
		Since:    start,
	}
	if !actor.IsAdmin() {
		filter.VendorID = actor.ID
	}

	totals, err := s.orderRepo.Summarize(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize orders for sales stats: %w", err)
	}

	total := decimal.NewFromFloat(totals.Revenue)
	stats := &models.SalesStats{
		TotalSales:  total.Round(2).InexactFloat64(),
		TotalOrders: int(totals.Count),
	}
	if totals.Count > 0 {
		stats.AverageOrderValue = total.Div(decimal.NewFromInt(totals.Count)).Round(2).InexactFloat64()
	}
	return stats, nil
}

// periodStart returns the first instant counted for period, in now's location.
func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case PeriodMonth, "":
		return startOfMonth(now), nil
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, invalidField("period", fmt.Sprintf("Invalid period '%s', expected week, month or year", period))
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// GetOrder returns a single order visible to actor.
func (s *OrderService) GetOrder(ctx context.Context, actor authz.Actor, id string) (*models.OrderDetail, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actor, authz.ActionViewOrder, authz.Resource{Order: order}, "Access denied"); err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

// ListMyOrders returns the orders placed by actor, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, actor authz.Actor, page, limit int) (*models.OrderPage, error) {
	if actor.ID == "" {
		return nil, models.NewDomainError(models.KindUnauthorized, "Authentication required")
	}
	return s.listPage(ctx, models.OrderFilter{UserID: actor.ID}, page, limit)
}

// ListVendorOrders returns orders containing a line sold by the vendor. Admins
// may name any vendor in q.VendorID or leave it empty to see all orders.
func (s *OrderService) ListVendorOrders(ctx context.Context, actor authz.Actor, q OrderListQuery) (*models.OrderPage, error) {
	if err := authz.Require(actor, authz.ActionListVendorOrders, authz.Resource{}, "Access denied. Vendor or admin only."); err != nil {
		return nil, err
	}
	filter, err := listFilter(q)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		filter.VendorID = actor.ID
	}
	return s.listPage(ctx, filter, q.Page, q.Limit)
}

// ListAllOrders returns every order, optionally filtered by status and vendor.
func (s *OrderService) ListAllOrders(ctx context.Context, actor authz.Actor, q OrderListQuery) (*models.OrderPage, error) {
	if err := authz.Require(actor, authz.ActionListAllOrders, authz.Resource{}, "Access denied. Admin only."); err != nil {
		return nil, err
	}
	filter, err := listFilter(q)
	if err != nil {
		return nil, err
	}
	return s.listPage(ctx, filter, q.Page, q.Limit)
}

func listFilter(q OrderListQuery) (models.OrderFilter, error) {
	filter := models.OrderFilter{VendorID: q.VendorID}
	if q.Status != "" {
		if !q.Status.Valid() {
			return filter, invalidField("status", fmt.Sprintf("Invalid order status '%s'", q.Status))
		}
		filter.Statuses = []models.OrderStatus{q.Status}
	}
	return filter, nil
}

// normalizePage applies the listing defaults: page 1, DefaultPageSize lines,
// never more than MaxPageSize.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *OrderService) listPage(ctx context.Context, filter models.OrderFilter, page, limit int) (*models.OrderPage, error) {
	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	details, err := s.populate(ctx, orders)
	if err != nil {
		return nil, err
	}
	return &models.OrderPage{
		Orders: details,
		Pagination: models.Pagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalOrders: total,
		},
	}, nil
}

func (s *OrderService) detail(ctx context.Context, order *models.Order) (*models.OrderDetail, error) {
	details, err := s.populate(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *OrderService) populate(ctx context.Context, orders []models.Order) ([]models.OrderDetail, error) {
	return populateOrders(ctx, s.productRepo, s.userRepo, orders)
}

// populateOrders joins orders with the live catalog and account data used
// for display. Products or accounts that no longer exist are left nil.
func populateOrders(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	orders []models.Order,
) ([]models.OrderDetail, error) {
	productIDs := make([]string, 0)
	userIDs := make([]string, 0)
	for _, o := range orders {
		userIDs = append(userIDs, o.UserID)
		for _, item := range o.Items {
			productIDs = append(productIDs, item.ProductID)
			userIDs = append(userIDs, item.VendorID)
		}
	}

	products, err := productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order products: %w", err)
	}
	users, err := userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order accounts: %w", err)
	}

	productsByID := make(map[string]*models.ProductSummary, len(products))
	for _, p := range products {
		productsByID[p.ID] = &models.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Images: p.Images}
	}
	usersByID := make(map[string]*models.UserSummary, len(users))
	for i := range users {
		usersByID[users[i].ID] = users[i].Summary()
	}

	details := make([]models.OrderDetail, 0, len(orders))
	for _, o := range orders {
		d := models.OrderDetail{
			Order: o,
			User:  usersByID[o.UserID],
			Items: make([]models.OrderItemDetail, 0, len(o.Items)),
		}
		for _, item := range o.Items {
			d.Items = append(d.Items, models.OrderItemDetail{
				OrderItem: item,
				Product:   productsByID[item.ProductID],
				Vendor:    usersByID[item.VendorID],
			})
		}
		details = append(details, d)
	}
	return details, nil
}

func bareDetail(order *models.Order) *models.OrderDetail {
	d := &models.OrderDetail{Order: *order, Items: make([]models.OrderItemDetail, 0, len(order.Items))}
	for _, item := range order.Items {
		d.Items = append(d.Items, models.OrderItemDetail{OrderItem: item})
	}
	return d
}

// publish sends an order event. Failures are logged and never returned.
func (s *OrderService) publish(routingKey string, order *models.Order, actor authz.Actor) {
	if s.publisher == nil {
		s.logger.Debug().Str("routing_key", routingKey).Msg("event publisher not configured, skipping")
		return
	}

	vendorIDs := make([]string, 0, len(order.Items))
	seen := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		if !seen[item.VendorID] {
			seen[item.VendorID] = true
			vendorIDs = append(vendorIDs, item.VendorID)
		}
	}

	event := rabbitmq.OrderEvent{
		Type:          routingKey,
		OrderID:       order.ID,
		UserID:        order.UserID,
		OrderStatus:   string(order.OrderStatus),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total,
		VendorIDs:     vendorIDs,
		ActorID:       actor.ID,
		OccurredAt:    s.now(),
	}
	body, err := event.Encode()
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to encode order event")
		return
	}
	if err := s.publisher.Publish(rabbitmq.OrderExchange, routingKey, body); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID).
			Str("routing_key", routingKey).
			Msg("failed to publish order event")
	}
}
