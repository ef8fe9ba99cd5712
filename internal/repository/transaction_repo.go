package repository

import (
	"context"
	"errors"
	"time"

	"go-market-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) (*model.Transaction, error)
	ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
	// CreateOnce inserts tx unless a transaction for the same product exists,
	// in which case the stored row is returned with created=false. The
	// check and the insert run under one per-product lock.
	CreateOnce(ctx context.Context, tx *model.Transaction) (stored *model.Transaction, created bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, int64, error)
	GetSummary(ctx context.Context, startDate, endDate time.Time) (*model.LedgerSummary, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) FindByProductID(ctx context.Context, productID uuid.UUID) (*model.Transaction, error) {
	return findByProduct(r.db.WithContext(ctx), productID)
}

func productTransaction(db *gorm.DB, productID uuid.UUID) *gorm.DB {
	return db.Model(&model.Transaction{}).Where("product_id = ?", productID)
}

func findByProduct(db *gorm.DB, productID uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := productTransaction(db, productID).First(&transaction).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count > 0, err
}

func (r *transactionRepo) CreateOnce(ctx context.Context, record *model.Transaction) (*model.Transaction, bool, error) {
	var stored *model.Transaction
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advisoryLock(tx, "transactions", record.ProductID.String()).Error; err != nil {
			return err
		}

		existing, err := findByProduct(tx, record.ProductID)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}
		stored = record
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer bypassed the lock; the unique index still holds.
		existing, findErr := r.FindByProductID(ctx, record.ProductID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, int64, error) {
	var total int64
	where := "buyer_id = ? OR seller_id = ?"
	if err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where(where, userID, userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Where(where, userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *transactionRepo) GetSummary(ctx context.Context, startDate, endDate time.Time) (*model.LedgerSummary, error) {
	var summary model.LedgerSummary
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(`
			COUNT(*) AS count,
			COALESCE(SUM(product_price), 0) AS gross_volume,
			COALESCE(SUM(commission_amount), 0) AS commission_total,
			COALESCE(SUM(seller_amount), 0) AS seller_payout
		`).
		Where("status = ? AND created_at BETWEEN ? AND ?", model.TxCompleted, startDate, endDate).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
