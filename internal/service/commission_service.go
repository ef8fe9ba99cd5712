package service

import (
	"context"
	"errors"

	"go-market-ledger/internal/model"
	"go-market-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type CommissionService interface {
	// CurrentRate resolves the rate in effect now, creating the default
	// setting on first use.
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
	SetRate(ctx context.Context, rate decimal.Decimal, actorID string) (*model.CommissionSetting, error)
	ListSettings(ctx context.Context) ([]model.CommissionSetting, error)
}

type commissionService struct {
	repo        repository.CommissionRepository
	defaultRate decimal.Decimal
	log         *zap.Logger
}

func NewCommissionService(repo repository.CommissionRepository, defaultRate decimal.Decimal, log *zap.Logger) CommissionService {
	return &commissionService{
		repo:        repo,
		defaultRate: defaultRate,
		log:         log.Named("commission"),
	}
}

func (s *commissionService) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.repo.FindLatestActive(ctx)
	if err == nil {
		return setting.Rate, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, storageError("resolve commission rate", err)
	}

	fallback := &model.CommissionSetting{
		Rate:      s.defaultRate,
		Active:    true,
		CreatedBy: "system",
	}
	setting, err = s.repo.EnsureActive(ctx, fallback)
	if err != nil {
		return decimal.Zero, storageError("initialise commission rate", err)
	}
	if setting == fallback {
		s.log.Info("created default commission setting", zap.String("rate", setting.Rate.String()))
	}
	return setting.Rate, nil
}

func (s *commissionService) SetRate(ctx context.Context, rate decimal.Decimal, actorID string) (*model.CommissionSetting, error) {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return nil, ErrInvalidRate.WithDetail(rate.String())
	}
	if !rate.Equal(rate.Round(2)) {
		return nil, ErrInvalidRate.WithDetail("at most two decimal places")
	}

	setting := &model.CommissionSetting{
		Rate:      rate,
		Active:    true,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, setting); err != nil {
		return nil, storageError("save commission setting", err)
	}

	s.log.Info("commission rate superseded",
		zap.String("rate", rate.String()),
		zap.String("actor", actorID),
	)
	return setting, nil
}

func (s *commissionService) ListSettings(ctx context.Context) ([]model.CommissionSetting, error) {
	settings, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list commission settings", err)
	}
	return settings, nil
}

// splitCommission returns floor(price * rate / 100) and the seller's
// remainder. The two always sum to price.
func splitCommission(price int64, rate decimal.Decimal) (commission, sellerAmount int64) {
	commission = decimal.NewFromInt(price).Mul(rate).Shift(-2).Floor().IntPart()
	return commission, price - commission
}
