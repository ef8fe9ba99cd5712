package repository

import (
	"context"

	"go-market-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository reads the catalog's products table. The ledger never
// writes to it.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// ForEachByStatus streams products in primary-key order, batchSize rows
	// at a time. An error from fn stops the scan and is returned.
	ForEachByStatus(ctx context.Context, status model.ProductStatus, batchSize int, fn func(model.Product) error) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) ForEachByStatus(ctx context.Context, status model.ProductStatus, batchSize int, fn func(model.Product) error) error {
	var batch []model.Product
	return r.db.WithContext(ctx).
		Where("status = ?", status).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				if err := fn(p); err != nil {
					return err
				}
			}
			return nil
		}).Error
}
