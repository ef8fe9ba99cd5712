package model

import (
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "PENDING"
	OfferAccepted OfferStatus = "ACCEPTED"
	OfferRejected OfferStatus = "REJECTED"
	OfferExpired  OfferStatus = "EXPIRED"
)

// OfferTTL is how long an offer (and the purchase right granted by
// accepting it) stays valid.
const OfferTTL = 72 * time.Hour

// PriceOffer is a buyer's below-listing price proposal. Status is the only
// field that changes after creation, and it never returns to PENDING.
type PriceOffer struct {
	BaseModel
	ProductID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"product_id"`
	BuyerID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"seller_id"`
	ListedPrice  int64       `gorm:"not null" json:"listed_price"`
	OfferedPrice int64       `gorm:"not null" json:"offered_price"`
	Message      string      `gorm:"type:text" json:"message,omitempty"`
	Status       OfferStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	ExpiresAt    time.Time   `gorm:"type:timestamptz;not null" json:"expires_at"`
}

func (PriceOffer) TableName() string {
	return "price_offers"
}

// EffectiveStatus reports EXPIRED for a pending offer past its expiry,
// otherwise the stored status. It never writes.
func (o *PriceOffer) EffectiveStatus(now time.Time) OfferStatus {
	if o.Status == OfferPending && o.IsExpired(now) {
		return OfferExpired
	}
	return o.Status
}

func (o *PriceOffer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// GrantsPurchase reports whether the buyer may still buy at OfferedPrice.
func (o *PriceOffer) GrantsPurchase(now time.Time) bool {
	return o.Status == OfferAccepted && !o.IsExpired(now)
}

// OfferResponse is an offer as presented to readers, with lazy expiry applied.
type OfferResponse struct {
	ID           uuid.UUID   `json:"id"`
	ProductID    uuid.UUID   `json:"product_id"`
	BuyerID      uuid.UUID   `json:"buyer_id"`
	SellerID     uuid.UUID   `json:"seller_id"`
	ListedPrice  int64       `json:"listed_price"`
	OfferedPrice int64       `json:"offered_price"`
	Message      string      `json:"message,omitempty"`
	Status       OfferStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

func (o *PriceOffer) ToResponse(now time.Time) OfferResponse {
	return OfferResponse{
		ID:           o.ID,
		ProductID:    o.ProductID,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		ListedPrice:  o.ListedPrice,
		OfferedPrice: o.OfferedPrice,
		Message:      o.Message,
		Status:       o.EffectiveStatus(now),
		CreatedAt:    o.CreatedAt,
		ExpiresAt:    o.ExpiresAt,
	}
}
