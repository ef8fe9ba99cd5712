package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go-market-ledger/internal/model"
	"go-market-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repositories with the same atomicity guarantees as the gorm
// implementations. Each one serialises writers behind a mutex.

var errBoom = errors.New("boom")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
	scanErr  error
}

func newFakeProducts(products ...model.Product) *fakeProducts {
	f := &fakeProducts{products: make(map[uuid.UUID]model.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) ForEachByStatus(_ context.Context, status model.ProductStatus, _ int, fn func(model.Product) error) error {
	f.mu.Lock()
	var matched []model.Product
	for _, p := range f.products {
		if p.Status == status {
			matched = append(matched, p)
		}
	}
	scanErr := f.scanErr
	f.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.String() < matched[j].ID.String() })
	for _, p := range matched {
		if err := fn(p); err != nil {
			return err
		}
	}
	return scanErr
}

type fakeOffers struct {
	mu     sync.Mutex
	offers map[uuid.UUID]model.PriceOffer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{offers: make(map[uuid.UUID]model.PriceOffer)}
}

func (f *fakeOffers) Create(_ context.Context, offer *model.PriceOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	f.offers[offer.ID] = *offer
	return nil
}

func (f *fakeOffers) FindByID(_ context.Context, id uuid.UUID) (*model.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOffers) ListByBuyer(_ context.Context, buyerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error) {
	return f.list(func(o model.PriceOffer) bool { return o.BuyerID == buyerID }, limit, offset)
}

func (f *fakeOffers) ListBySeller(_ context.Context, sellerID uuid.UUID, limit, offset int) ([]model.PriceOffer, int64, error) {
	return f.list(func(o model.PriceOffer) bool { return o.SellerID == sellerID }, limit, offset)
}

func (f *fakeOffers) list(match func(model.PriceOffer) bool, limit, offset int) ([]model.PriceOffer, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.PriceOffer
	for _, o := range f.offers {
		if match(o) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeOffers) Transition(_ context.Context, id uuid.UUID, fn repository.TransitionFunc) (*model.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next, err := fn(&o)
	if err != nil {
		return nil, err
	}
	o.Status = next
	f.offers[id] = o
	return &o, nil
}

func (f *fakeOffers) FindPurchaseGrant(_ context.Context, productID, buyerID uuid.UUID, price int64, now time.Time) (*model.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.offers {
		if o.ProductID == productID && o.BuyerID == buyerID && o.OfferedPrice == price && o.GrantsPurchase(now) {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOffers) FindActiveGrants(_ context.Context, productID uuid.UUID, now time.Time) ([]model.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var grants []model.PriceOffer
	for _, o := range f.offers {
		if o.ProductID == productID && o.GrantsPurchase(now) {
			grants = append(grants, o)
		}
	}
	return grants, nil
}

func (f *fakeOffers) status(id uuid.UUID) model.OfferStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offers[id].Status
}

type fakeTransactions struct {
	mu        sync.Mutex
	byProduct map[uuid.UUID]model.Transaction
	failFor   map[uuid.UUID]error
	inserts   int
}

func newFakeTransactions(existing ...model.Transaction) *fakeTransactions {
	f := &fakeTransactions{
		byProduct: make(map[uuid.UUID]model.Transaction),
		failFor:   make(map[uuid.UUID]error),
	}
	for _, tx := range existing {
		f.byProduct[tx.ProductID] = tx
	}
	return f
}

func (f *fakeTransactions) FindByID(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.byProduct {
		if tx.ID == id {
			return &tx, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTransactions) FindByProductID(_ context.Context, productID uuid.UUID) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.byProduct[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (f *fakeTransactions) ExistsForProduct(_ context.Context, productID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[productID]; err != nil {
		return false, err
	}
	_, ok := f.byProduct[productID]
	return ok, nil
}

func (f *fakeTransactions) CreateOnce(_ context.Context, record *model.Transaction) (*model.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byProduct[record.ProductID]; ok {
		return &existing, false, nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.byProduct[record.ProductID] = *record
	f.inserts++
	stored := *record
	return &stored, true, nil
}

func (f *fakeTransactions) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.Transaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Transaction
	for _, tx := range f.byProduct {
		if tx.IsParty(userID) {
			all = append(all, tx)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeTransactions) GetSummary(_ context.Context, startDate, endDate time.Time) (*model.LedgerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s model.LedgerSummary
	for _, tx := range f.byProduct {
		if tx.CreatedAt.Before(startDate) || tx.CreatedAt.After(endDate) {
			continue
		}
		s.Count++
		s.GrossVolume += tx.ProductPrice
		s.CommissionTotal += tx.CommissionAmount
		s.SellerPayout += tx.SellerAmount
	}
	return &s, nil
}

func (f *fakeTransactions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byProduct)
}

type fakeCommissionRepo struct {
	mu       sync.Mutex
	settings []model.CommissionSetting
	findErr  error
	created  int
}

func (f *fakeCommissionRepo) FindLatestActive(context.Context) (*model.CommissionSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.latestActive()
}

func (f *fakeCommissionRepo) latestActive() (*model.CommissionSetting, error) {
	var latest *model.CommissionSetting
	for i := range f.settings {
		s := f.settings[i]
		if !s.Active {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeCommissionRepo) EnsureActive(_ context.Context, fallback *model.CommissionSetting) (*model.CommissionSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, err := f.latestActive(); err == nil {
		return existing, nil
	}
	f.insert(fallback)
	return fallback, nil
}

func (f *fakeCommissionRepo) Create(_ context.Context, setting *model.CommissionSetting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insert(setting)
	return nil
}

func (f *fakeCommissionRepo) insert(setting *model.CommissionSetting) {
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = time.Now().Add(time.Duration(len(f.settings)) * time.Millisecond)
	}
	f.settings = append(f.settings, *setting)
	f.created++
}

func (f *fakeCommissionRepo) FindAll(context.Context) ([]model.CommissionSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CommissionSetting, len(f.settings))
	copy(out, f.settings)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fixedRate is a CommissionService stub for tests that don't care how the
// rate is resolved.
type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) CurrentRate(context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

func (f fixedRate) SetRate(context.Context, decimal.Decimal, string) (*model.CommissionSetting, error) {
	return nil, errors.New("not supported")
}

func (f fixedRate) ListSettings(context.Context) ([]model.CommissionSetting, error) {
	return nil, nil
}

type sentMessage struct {
	userIDs []string
	message []byte
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) SendToUsers(userIDs []string, message []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{userIDs: userIDs, message: message})
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func forSale(sellerID uuid.UUID, price int64) model.Product {
	return model.Product{
		ID:       uuid.New(),
		SellerID: sellerID,
		Title:    "Road bike",
		Price:    price,
		Status:   model.ProductForSale,
	}
}
