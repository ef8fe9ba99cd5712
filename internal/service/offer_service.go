package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-market-ledger/internal/model"
	"go-market-ledger/internal/repository"
	"go-market-ledger/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OfferService interface {
	CreateOffer(ctx context.Context, buyerID uuid.UUID, req *CreateOfferRequest) (*model.PriceOffer, error)
	AcceptOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.PriceOffer, error)
	RejectOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.PriceOffer, error)
	GetOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.OfferResponse, error)
	ListSentOffers(ctx context.Context, buyerID uuid.UUID, page, perPage int) (*Page[model.OfferResponse], error)
	ListReceivedOffers(ctx context.Context, sellerID uuid.UUID, page, perPage int) (*Page[model.OfferResponse], error)
	// ResolveEffectiveStatus applies lazy expiry to a stored offer.
	ResolveEffectiveStatus(offer *model.PriceOffer) model.OfferStatus
}

type CreateOfferRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"uuid_required"`
	OfferedPrice int64     `json:"offered_price" validate:"gt=0"`
	Message      string    `json:"message" validate:"max=500"`
}

type offerService struct {
	offers   repository.OfferRepository
	products repository.ProductRepository
	notifier Notifier
	log      *zap.Logger
	now      Clock
}

func NewOfferService(offers repository.OfferRepository, products repository.ProductRepository, notifier Notifier, log *zap.Logger) OfferService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &offerService{
		offers:   offers,
		products: products,
		notifier: notifier,
		log:      log.Named("offer"),
		now:      systemClock,
	}
}

func (s *offerService) CreateOffer(ctx context.Context, buyerID uuid.UUID, req *CreateOfferRequest) (*model.PriceOffer, error) {
	// 1. Validate the request shape
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, ErrInvalidOffer.WithDetail(validator.Summary(errs))
	}

	// 2. Load the product snapshot
	product, err := s.products.FindByID(ctx, req.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, storageError("load product", err)
	}

	// 3. Business rules
	if product.SellerID == buyerID {
		return nil, ErrSelfOffer
	}
	if !product.IsForSale() {
		return nil, ErrProductUnavailable
	}
	if req.OfferedPrice >= product.Price {
		return nil, ErrInvalidOffer.WithDetail(fmt.Sprintf("listed price is %d", product.Price))
	}

	// 4. Persist with a server-side expiry
	now := s.now()
	offer := &model.PriceOffer{
		ProductID:    product.ID,
		BuyerID:      buyerID,
		SellerID:     product.SellerID,
		ListedPrice:  product.Price,
		OfferedPrice: req.OfferedPrice,
		Message:      req.Message,
		Status:       model.OfferPending,
		ExpiresAt:    now.Add(model.OfferTTL),
	}
	offer.CreatedAt = now

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, storageError("save offer", err)
	}

	s.log.Info("offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("product_id", offer.ProductID.String()),
		zap.Int64("offered_price", offer.OfferedPrice),
	)
	s.notify(offer.SellerID, "offer_created", offer,
		fmt.Sprintf("New offer of %d on your listing (listed at %d)", offer.OfferedPrice, offer.ListedPrice))

	return offer, nil
}

func (s *offerService) AcceptOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.PriceOffer, error) {
	return s.respond(ctx, offerID, callerID, model.OfferAccepted)
}

func (s *offerService) RejectOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.PriceOffer, error) {
	return s.respond(ctx, offerID, callerID, model.OfferRejected)
}

// respond moves a pending offer to next. The checks run inside the row
// lock so two sellers' requests cannot both succeed.
func (s *offerService) respond(ctx context.Context, offerID, callerID uuid.UUID, next model.OfferStatus) (*model.PriceOffer, error) {
	offer, err := s.offers.Transition(ctx, offerID, func(o *model.PriceOffer) (model.OfferStatus, error) {
		if o.SellerID != callerID {
			return "", ErrNotOfferOwner
		}
		if o.Status != model.OfferPending {
			return "", ErrOfferNotPending
		}
		if o.IsExpired(s.now()) {
			return "", ErrOfferExpired
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, asServiceError("update offer", err)
	}

	s.log.Info("offer answered",
		zap.String("offer_id", offer.ID.String()),
		zap.String("status", string(offer.Status)),
	)

	action, message := "offer_rejected", "Your offer was rejected"
	if next == model.OfferAccepted {
		action = "offer_accepted"
		message = fmt.Sprintf("Your offer of %d was accepted, purchase before %s",
			offer.OfferedPrice, offer.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	s.notify(offer.BuyerID, action, offer, message)

	return offer, nil
}

func (s *offerService) GetOffer(ctx context.Context, offerID, callerID uuid.UUID) (*model.OfferResponse, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, storageError("load offer", err)
	}
	if offer.BuyerID != callerID && offer.SellerID != callerID {
		return nil, ErrForbidden
	}

	resp := offer.ToResponse(s.now())
	return &resp, nil
}

func (s *offerService) ListSentOffers(ctx context.Context, buyerID uuid.UUID, page, perPage int) (*Page[model.OfferResponse], error) {
	return s.list(ctx, s.offers.ListByBuyer, buyerID, page, perPage)
}

func (s *offerService) ListReceivedOffers(ctx context.Context, sellerID uuid.UUID, page, perPage int) (*Page[model.OfferResponse], error) {
	return s.list(ctx, s.offers.ListBySeller, sellerID, page, perPage)
}

type offerLister func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error)

func (s *offerService) list(ctx context.Context, find offerLister, userID uuid.UUID, page, perPage int) (*Page[model.OfferResponse], error) {
	page, perPage, offset := normalizePage(page, perPage)

	offers, total, err := find(ctx, userID, perPage, offset)
	if err != nil {
		return nil, storageError("list offers", err)
	}

	now := s.now()
	items := make([]model.OfferResponse, len(offers))
	for i := range offers {
		items[i] = offers[i].ToResponse(now)
	}

	return &Page[model.OfferResponse]{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (s *offerService) ResolveEffectiveStatus(offer *model.PriceOffer) model.OfferStatus {
	return offer.EffectiveStatus(s.now())
}

func (s *offerService) notify(userID uuid.UUID, action string, offer *model.PriceOffer, message string) {
	payload := map[string]interface{}{
		"type":    "offer_notification",
		"action":  action,
		"message": message,
		"offer":   offer.ToResponse(s.now()),
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("encode offer notification", zap.Error(err))
		return
	}
	s.notifier.SendToUsers([]string{userID.String()}, msg)
}
