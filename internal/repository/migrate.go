package repository

import (
	"go-market-ledger/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate creates the tables owned by the ledger. The products table
// belongs to the catalog service and is never migrated here.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.CommissionSetting{},
		&model.PriceOffer{},
		&model.Transaction{},
	)
}
