package service

import (
	"context"
	"sync/atomic"
	"time"

	"go-market-ledger/internal/model"
	"go-market-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReconcileService backfills transactions for products sold before the
// ledger existed. Every synthesized record uses the rate in effect when the
// run starts and the unknown-buyer sentinel; no historical rate is known.
type ReconcileService interface {
	Reconcile(ctx context.Context) (*ReconcileResult, error)
}

type ReconcileResult struct {
	Created  int             `json:"created"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Rate     decimal.Decimal `json:"rate"`
	Duration time.Duration   `json:"duration"`
}

type ReconcileOptions struct {
	Workers   int
	BatchSize int
}

type reconcileService struct {
	products     repository.ProductRepository
	transactions repository.TransactionRepository
	commission   CommissionService
	settler      HistoricalSettler
	opts         ReconcileOptions
	log          *zap.Logger
}

func NewReconcileService(
	products repository.ProductRepository,
	transactions repository.TransactionRepository,
	commission CommissionService,
	settler HistoricalSettler,
	opts ReconcileOptions,
	log *zap.Logger,
) ReconcileService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 200
	}
	return &reconcileService{
		products:     products,
		transactions: transactions,
		commission:   commission,
		settler:      settler,
		opts:         opts,
		log:          log.Named("reconcile"),
	}
}

type reconcileCounters struct {
	created atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// Reconcile runs to completion. Per-product failures are logged and
// counted; only failing to resolve the rate or to enumerate sold products
// aborts the run.
func (s *reconcileService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	started := time.Now()

	rate, err := s.commission.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("reconciliation started",
		zap.String("rate", rate.String()),
		zap.Int("workers", s.opts.Workers),
	)

	var counters reconcileCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	scanErr := s.products.ForEachByStatus(ctx, model.ProductSold, s.opts.BatchSize, func(p model.Product) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			s.reconcileProduct(gctx, &p, rate, &counters)
			return nil
		})
		return nil
	})
	_ = g.Wait()

	result := &ReconcileResult{
		Created:  int(counters.created.Load()),
		Skipped:  int(counters.skipped.Load()),
		Failed:   int(counters.failed.Load()),
		Rate:     rate,
		Duration: time.Since(started),
	}
	if scanErr != nil {
		s.log.Error("reconciliation aborted", zap.Error(scanErr),
			zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
		return result, storageError("enumerate sold products", scanErr)
	}

	s.log.Info("reconciliation finished",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *reconcileService) reconcileProduct(ctx context.Context, p *model.Product, rate decimal.Decimal, c *reconcileCounters) {
	exists, err := s.transactions.ExistsForProduct(ctx, p.ID)
	if err != nil {
		c.failed.Add(1)
		s.log.Warn("check transaction failed", zap.String("product_id", p.ID.String()), zap.Error(err))
		return
	}
	if exists {
		c.skipped.Add(1)
		return
	}

	tx, created, err := s.settler.SettleHistorical(ctx, p, rate)
	if err != nil {
		c.failed.Add(1)
		s.log.Warn("backfill failed", zap.String("product_id", p.ID.String()), zap.Error(err))
		return
	}
	if !created {
		// settled concurrently between the check and the insert
		c.skipped.Add(1)
		return
	}

	c.created.Add(1)
	s.log.Debug("backfilled transaction",
		zap.String("product_id", p.ID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.Time("sold_at", tx.CreatedAt),
	)
}
