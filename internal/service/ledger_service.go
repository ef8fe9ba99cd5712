package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-market-ledger/internal/model"
	"go-market-ledger/internal/repository"
	"go-market-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LedgerService interface {
	// Settle records the sale of a product. The first settlement wins across
	// all buyers: repeating it for the same buyer returns the stored
	// transaction, while any other buyer gets ErrProductUnavailable.
	// A live accepted offer reserves the product for its buyer until expiry.
	Settle(ctx context.Context, req *SettleRequest) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id, callerID uuid.UUID, canViewAll bool) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) (*Page[model.Transaction], error)
	GetSummary(ctx context.Context, startDate, endDate time.Time) (*model.LedgerSummary, error)
	HistoricalSettler
}

// HistoricalSettler writes settlements for sales that predate the ledger.
type HistoricalSettler interface {
	SettleHistorical(ctx context.Context, product *model.Product, rate decimal.Decimal) (tx *model.Transaction, created bool, err error)
}

type SettleRequest struct {
	ProductID   uuid.UUID `json:"product_id" validate:"uuid_required"`
	SellerID    uuid.UUID `json:"seller_id"` // zero means the product's seller
	BuyerID     uuid.UUID `json:"-" validate:"uuid_required"`
	AgreedPrice int64     `json:"agreed_price" validate:"gt=0"`
}

type ledgerService struct {
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	offers       repository.OfferRepository
	commission   CommissionService
	notifier     Notifier
	log          *zap.Logger
	now          Clock
}

func NewLedgerService(
	transactions repository.TransactionRepository,
	products repository.ProductRepository,
	offers repository.OfferRepository,
	commission CommissionService,
	notifier Notifier,
	log *zap.Logger,
) LedgerService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ledgerService{
		transactions: transactions,
		products:     products,
		offers:       offers,
		commission:   commission,
		notifier:     notifier,
		log:          log.Named("ledger"),
		now:          systemClock,
	}
}

func (s *ledgerService) Settle(ctx context.Context, req *SettleRequest) (*model.Transaction, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, ErrInvalidSettlement.WithDetail(validator.Summary(errs))
	}

	// 1. Settled already? Hand back the stored record so retries are safe.
	existing, err := s.transactions.FindByProductID(ctx, req.ProductID)
	if err == nil {
		return s.existingFor(existing, req.BuyerID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageError("check existing transaction", err)
	}

	// 2. Who sells, who buys
	product, err := s.products.FindByID(ctx, req.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, storageError("load product", err)
	}

	sellerID := req.SellerID
	if sellerID == uuid.Nil {
		sellerID = product.SellerID
	}
	if sellerID != product.SellerID {
		return nil, ErrSellerMismatch
	}
	if req.BuyerID == sellerID {
		return nil, ErrSelfPurchase
	}

	// 3. The price is the listing price (unless another buyer holds a live
	// accepted offer) or the caller's own accepted, unexpired offer
	now := s.now()
	var offerID *uuid.UUID
	if req.AgreedPrice == product.Price {
		if err := s.checkReservation(ctx, product.ID, req.BuyerID, now); err != nil {
			return nil, err
		}
	} else {
		grant, err := s.offers.FindPurchaseGrant(ctx, product.ID, req.BuyerID, req.AgreedPrice, now)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidSettlementPrice.WithDetail(fmt.Sprintf("listed price is %d", product.Price))
		}
		if err != nil {
			return nil, storageError("load accepted offer", err)
		}
		offerID = &grant.ID
	}

	// 4. Split and persist
	rate, err := s.commission.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}

	record := newTransaction(product.ID, sellerID, req.BuyerID, req.AgreedPrice, rate, now)
	record.OfferID = offerID

	stored, created, err := s.transactions.CreateOnce(ctx, record)
	if err != nil {
		return nil, storageError("save transaction", err)
	}
	if !created {
		return s.existingFor(stored, req.BuyerID)
	}

	s.log.Info("transaction settled",
		zap.String("transaction_id", stored.ID.String()),
		zap.String("product_id", stored.ProductID.String()),
		zap.Int64("price", stored.ProductPrice),
		zap.Int64("commission", stored.CommissionAmount),
		zap.Bool("via_offer", offerID != nil),
	)
	s.notifySettled(stored)

	return stored, nil
}

// checkReservation fails when an accepted, unexpired offer from someone
// other than buyerID holds the product.
func (s *ledgerService) checkReservation(ctx context.Context, productID, buyerID uuid.UUID, now time.Time) error {
	grants, err := s.offers.FindActiveGrants(ctx, productID, now)
	if err != nil {
		return storageError("load accepted offers", err)
	}
	if len(grants) == 0 {
		return nil
	}
	for _, g := range grants {
		if g.BuyerID == buyerID {
			return nil
		}
	}
	return ErrProductUnavailable.WithDetail(fmt.Sprintf("reserved by an accepted offer until %s",
		grants[0].ExpiresAt.Format(time.RFC3339)))
}

// existingFor resolves a settle call that found the product already
// settled: a retry by the same buyer succeeds, anyone else lost the race.
func (s *ledgerService) existingFor(existing *model.Transaction, buyerID uuid.UUID) (*model.Transaction, error) {
	if existing.BuyerID != buyerID {
		return nil, ErrProductUnavailable.WithDetail("already sold")
	}
	s.log.Debug("settlement replayed",
		zap.String("product_id", existing.ProductID.String()),
		zap.Error(ErrDuplicateTransaction),
	)
	return existing, nil
}

func (s *ledgerService) SettleHistorical(ctx context.Context, product *model.Product, rate decimal.Decimal) (*model.Transaction, bool, error) {
	// updated_at is the best available proxy for when the sale happened
	soldAt := product.UpdatedAt
	if soldAt.IsZero() {
		soldAt = s.now()
	}

	record := newTransaction(product.ID, product.SellerID, model.UnknownBuyerID, product.Price, rate, soldAt)
	stored, created, err := s.transactions.CreateOnce(ctx, record)
	if err != nil {
		return nil, false, storageError("save historical transaction", err)
	}
	return stored, created, nil
}

func newTransaction(productID, sellerID, buyerID uuid.UUID, price int64, rate decimal.Decimal, at time.Time) *model.Transaction {
	commission, sellerAmount := splitCommission(price, rate)
	tx := &model.Transaction{
		ProductID:        productID,
		SellerID:         sellerID,
		BuyerID:          buyerID,
		ProductPrice:     price,
		CommissionRate:   rate,
		CommissionAmount: commission,
		SellerAmount:     sellerAmount,
		Status:           model.TxCompleted,
	}
	tx.CreatedAt = at
	return tx
}

func (s *ledgerService) GetTransaction(ctx context.Context, id, callerID uuid.UUID, canViewAll bool) (*model.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, storageError("load transaction", err)
	}
	if !canViewAll && !tx.IsParty(callerID) {
		return nil, ErrForbidden
	}
	return tx, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) (*Page[model.Transaction], error) {
	page, perPage, offset := normalizePage(page, perPage)

	items, total, err := s.transactions.ListByUser(ctx, userID, perPage, offset)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	if items == nil {
		items = []model.Transaction{}
	}
	return &Page[model.Transaction]{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (s *ledgerService) GetSummary(ctx context.Context, startDate, endDate time.Time) (*model.LedgerSummary, error) {
	summary, err := s.transactions.GetSummary(ctx, startDate, endDate)
	if err != nil {
		return nil, storageError("summarise transactions", err)
	}
	return summary, nil
}

func (s *ledgerService) notifySettled(tx *model.Transaction) {
	payload := map[string]interface{}{
		"type":    "ledger_notification",
		"action":  "transaction_settled",
		"message": fmt.Sprintf("Sale completed at %d (commission %d, payout %d)", tx.ProductPrice, tx.CommissionAmount, tx.SellerAmount),
		"transaction": map[string]interface{}{
			"id":                tx.ID,
			"product_id":        tx.ProductID,
			"product_price":     tx.ProductPrice,
			"commission_rate":   tx.CommissionRate,
			"commission_amount": tx.CommissionAmount,
			"seller_amount":     tx.SellerAmount,
		},
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("encode settlement notification", zap.Error(err))
		return
	}
	s.notifier.SendToUsers([]string{tx.BuyerID.String(), tx.SellerID.String()}, msg)
}
