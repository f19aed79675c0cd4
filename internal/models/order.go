package models

import "time"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// SalesStatuses are the statuses counted as sales.
var SalesStatuses = []OrderStatus{OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered}

// PaymentStatus is tracked independently of the order status.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// PaymentMethod is a label only; no payment is captured.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI:
		return true
	}
	return false
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// OrderItem is a line of an order. Price and VendorID are captured when the
// order is placed and are authoritative for billing afterwards.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"type:varchar(36);index;not null"`
	Position  int     `json:"-" gorm:"not null"`
	ProductID string  `json:"productId" gorm:"type:varchar(36);not null"`
	Quantity  int     `json:"quantity" gorm:"not null;check:quantity >= 1"`
	Price     float64 `json:"price" gorm:"not null"`
	VendorID  string  `json:"vendorId" gorm:"type:varchar(36);index;not null"`
}

// Order represents a customer order.
type Order struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            string          `json:"userId" gorm:"type:varchar(36);index;not null"`
	Items             []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress   ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(16);not null"`
	Subtotal          float64         `json:"subtotal"`
	Tax               float64         `json:"tax"`
	ShippingCost      float64         `json:"shippingCost"`
	Total             float64         `json:"total"`
	OrderStatus       OrderStatus     `json:"orderStatus" gorm:"type:varchar(16);index;not null"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(16);not null"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// HasVendor reports whether any line item was sold by vendorID.
func (o *Order) HasVendor(vendorID string) bool {
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

// Clone returns a copy of o that shares no mutable state with it.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.EstimatedDelivery != nil {
		t := *o.EstimatedDelivery
		c.EstimatedDelivery = &t
	}
	return &c
}

// OrderFilter selects orders. Zero values mean "no filter".
type OrderFilter struct {
	UserID   string
	VendorID string
	Statuses []OrderStatus
	Since    time.Time
	Limit    int
	Offset   int
}

// StatusUpdate carries the fields a vendor or admin may overwrite on an order.
type StatusUpdate struct {
	OrderStatus       OrderStatus
	PaymentStatus     PaymentStatus
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

// ProductSummary is the live catalog data shown next to an order line.
type ProductSummary struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

// OrderItemDetail is an order line joined with display data.
type OrderItemDetail struct {
	OrderItem
	Product *ProductSummary `json:"product"`
	Vendor  *UserSummary    `json:"vendor"`
}

// OrderDetail is an order joined with catalog and account display data.
type OrderDetail struct {
	Order
	User  *UserSummary      `json:"user"`
	Items []OrderItemDetail `json:"items"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalOrders int64 `json:"totalOrders"`
}

// OrderPage is a page of orders.
type OrderPage struct {
	Orders     []OrderDetail `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

// SalesStats aggregates completed sales over a period.
type SalesStats struct {
	TotalSales        float64 `json:"totalSales"`
	TotalOrders       int     `json:"totalOrders"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

// OrderTotals aggregates the orders matching a filter.
type OrderTotals struct {
	Count   int64
	Revenue float64
}

// VendorSales aggregates the order lines of one vendor. OrderCount is the
// number of distinct orders containing those lines.
type VendorSales struct {
	VendorID   string
	TotalSales float64
	OrderCount int64
}
