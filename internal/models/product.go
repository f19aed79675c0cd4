package models

import "time"

// Product categories.
const (
	CategoryFruitJuice = "fruit-juice"
	CategoryDryFruits  = "dry-fruits"
)

// Units of sale.
const (
	UnitGram       = "g"
	UnitKilogram   = "kg"
	UnitMillilitre = "ml"
	UnitLitre      = "l"
	UnitPack       = "pack"
	UnitPiece      = "piece"
)

// Product represents a sellable item in the catalog.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description"`
	Category    string    `json:"category" gorm:"type:varchar(32);index"`
	Subcategory string    `json:"subcategory" gorm:"type:varchar(100)"`
	Price       float64   `json:"price" gorm:"not null;check:price >= 0"`
	Stock       int       `json:"stock" gorm:"not null;check:stock >= 0"`
	Unit        string    `json:"unit" gorm:"type:varchar(16)"`
	Images      []string  `json:"images" gorm:"serializer:json"`
	IsActive    bool      `json:"isActive" gorm:"not null"`
	VendorID    string    `json:"vendorId" gorm:"type:varchar(36);index;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	Category   string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	VendorID   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ProductPagination describes a page of a catalog listing.
type ProductPagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalProducts int64 `json:"totalProducts"`
}

// ProductPage is a page of products.
type ProductPage struct {
	Products   []Product         `json:"products"`
	Pagination ProductPagination `json:"pagination"`
}

// CategoryCount is the number of products filed under a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
