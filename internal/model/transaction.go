package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const TxCompleted TransactionStatus = "COMPLETED"

// UnknownBuyerID stands in for the buyer of sales that predate the ledger.
var UnknownBuyerID = uuid.Nil

// Transaction is the immutable settlement record of a sold product.
// SellerAmount + CommissionAmount always equals ProductPrice.
type Transaction struct {
	BaseModel
	ProductID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"product_id"`
	SellerID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"seller_id"`
	BuyerID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"buyer_id"`
	OfferID          *uuid.UUID        `gorm:"type:uuid" json:"offer_id,omitempty"`
	ProductPrice     int64             `gorm:"not null" json:"product_price"`
	CommissionRate   decimal.Decimal   `gorm:"type:numeric(5,2);not null" json:"commission_rate"` // snapshot
	CommissionAmount int64             `gorm:"not null" json:"commission_amount"`
	SellerAmount     int64             `gorm:"not null" json:"seller_amount"`
	Status           TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsParty reports whether the user is the buyer or seller.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// LedgerSummary aggregates settlements over a period.
type LedgerSummary struct {
	Count           int64 `json:"count"`
	GrossVolume     int64 `json:"gross_volume"`
	CommissionTotal int64 `json:"commission_total"`
	SellerPayout    int64 `json:"seller_payout"`
}
