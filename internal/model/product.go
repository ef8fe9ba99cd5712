package model

import (
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductForSale  ProductStatus = "FOR_SALE"
	ProductReserved ProductStatus = "RESERVED"
	ProductSold     ProductStatus = "SOLD"
)

// Product is a read-only view of the listing table owned by the catalog
// service. The ledger only ever reads price, status and seller.
type Product struct {
	ID        uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	SellerID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"seller_id"`
	Title     string        `gorm:"type:varchar(255)" json:"title"`
	Price     int64         `gorm:"not null" json:"price"`
	Status    ProductStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) IsForSale() bool {
	return p.Status == ProductForSale
}
