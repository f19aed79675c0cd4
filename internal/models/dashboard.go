package models

// DashboardStats is the store-wide summary shown on the admin dashboard.
type DashboardStats struct {
	Users        UserCounts    `json:"users"`
	Products     ProductCounts `json:"products"`
	Orders       OrderCounts   `json:"orders"`
	RecentOrders []OrderDetail `json:"recentOrders"`
}

// UserCounts counts shoppers and vendors. Admins are not counted.
type UserCounts struct {
	Total        int64 `json:"total"`
	Vendors      int64 `json:"vendors"`
	NewThisMonth int64 `json:"newThisMonth"`
}

type ProductCounts struct {
	Total      int64           `json:"total"`
	Active     int64           `json:"active"`
	ByCategory []CategoryCount `json:"byCategory"`
}

// OrderCounts counts orders of any status; Revenue only sums sales.
type OrderCounts struct {
	Total     int64   `json:"total"`
	ThisMonth int64   `json:"thisMonth"`
	Revenue   float64 `json:"revenue"`
}

// PeriodStats is the activity over a trailing window.
type PeriodStats struct {
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// TopVendor ranks a vendor by the value of their sold lines.
type TopVendor struct {
	Vendor     *UserSummary `json:"vendor"`
	TotalSales float64      `json:"totalSales"`
	OrderCount int64        `json:"orderCount"`
}

// SystemOverview is the trailing-window activity of the whole store.
type SystemOverview struct {
	Weekly     PeriodStats `json:"weekly"`
	Monthly    PeriodStats `json:"monthly"`
	TopVendors []TopVendor `json:"topVendors"`
}
