package repository

import (
	"context"
	"time"

	"go-market-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransitionFunc inspects a locked offer and returns its next status, or an
// error to abort without writing.
type TransitionFunc func(offer *model.PriceOffer) (model.OfferStatus, error)

type OfferRepository interface {
	Create(ctx context.Context, offer *model.PriceOffer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PriceOffer, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error)
	// Transition applies fn to the offer under a row lock and persists the
	// returned status in the same database transaction.
	Transition(ctx context.Context, id uuid.UUID, fn TransitionFunc) (*model.PriceOffer, error)
	// FindPurchaseGrant returns the newest accepted offer from buyerID on
	// productID at price that has not expired at now.
	FindPurchaseGrant(ctx context.Context, productID, buyerID uuid.UUID, price int64, now time.Time) (*model.PriceOffer, error)
	// FindActiveGrants returns every accepted offer on productID that has
	// not expired at now, whoever made it.
	FindActiveGrants(ctx context.Context, productID uuid.UUID, now time.Time) ([]model.PriceOffer, error)
}

type offerRepo struct {
	db *gorm.DB
}

func NewOfferRepo(db *gorm.DB) OfferRepository {
	return &offerRepo{db}
}

func (r *offerRepo) Create(ctx context.Context, offer *model.PriceOffer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *offerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PriceOffer, error) {
	var offer model.PriceOffer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &offer, nil
}

func (r *offerRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, limit, offset)
}

func (r *offerRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error) {
	return r.list(ctx, "seller_id = ?", sellerID, limit, offset)
}

func (r *offerRepo) list(ctx context.Context, where string, userID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&model.PriceOffer{}).Where(where, userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var offers []model.PriceOffer
	err := r.db.WithContext(ctx).
		Where(where, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&offers).Error
	if err != nil {
		return nil, 0, err
	}
	return offers, total, nil
}

func (r *offerRepo) Transition(ctx context.Context, id uuid.UUID, fn TransitionFunc) (*model.PriceOffer, error) {
	var updated model.PriceOffer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var offer model.PriceOffer
		if err := lockedOffer(tx, id).First(&offer).Error; err != nil {
			return translate(err)
		}

		next, err := fn(&offer)
		if err != nil {
			return err
		}

		if err := tx.Model(&model.PriceOffer{}).
			Where("id = ?", offer.ID).
			Update("status", next).Error; err != nil {
			return err
		}
		offer.Status = next
		updated = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func lockedOffer(tx *gorm.DB, id uuid.UUID) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
}

func (r *offerRepo) FindPurchaseGrant(ctx context.Context, productID, buyerID uuid.UUID, price int64, now time.Time) (*model.PriceOffer, error) {
	var offer model.PriceOffer
	err := purchaseGrant(r.db.WithContext(ctx), productID, buyerID, price, now).First(&offer).Error
	if err != nil {
		return nil, translate(err)
	}
	return &offer, nil
}

func (r *offerRepo) FindActiveGrants(ctx context.Context, productID uuid.UUID, now time.Time) ([]model.PriceOffer, error) {
	var offers []model.PriceOffer
	err := activeGrants(r.db.WithContext(ctx), productID, now).
		Order("created_at DESC").
		Find(&offers).Error
	return offers, err
}

func purchaseGrant(db *gorm.DB, productID, buyerID uuid.UUID, price int64, now time.Time) *gorm.DB {
	return activeGrants(db, productID, now).
		Where("buyer_id = ? AND offered_price = ?", buyerID, price).
		Order("created_at DESC")
}

// activeGrants matches accepted offers still inside their window. The
// window is inclusive: an offer expiring exactly at now still grants.
func activeGrants(db *gorm.DB, productID uuid.UUID, now time.Time) *gorm.DB {
	return db.Model(&model.PriceOffer{}).
		Where("product_id = ? AND status = ? AND expires_at >= ?", productID, model.OfferAccepted, now)
}
