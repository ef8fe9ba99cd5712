// Command reconcile backfills ledger transactions for products that were
// marked SOLD before settlements were recorded. It is safe to run again.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-market-ledger/internal/config"
	"go-market-ledger/internal/repository"
	"go-market-ledger/internal/service"
	"go-market-ledger/pkg/database"
	"go-market-ledger/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	workers := flag.Int("workers", cfg.Reconcile.Workers, "products reconciled in parallel")
	batchSize := flag.Int("batch-size", cfg.Reconcile.BatchSize, "sold products fetched per query")
	flag.Parse()

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.ConnectDB(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("database unavailable", zap.Error(err))
	}
	defer database.Close(db)

	if cfg.DB.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			zlog.Fatal("migration failed", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	commissionService := service.NewCommissionService(repository.NewCommissionRepo(db), cfg.Ledger.DefaultCommissionRate, zlog)
	ledgerService := service.NewLedgerService(txRepo, productRepo, repository.NewOfferRepo(db), commissionService, nil, zlog)
	reconciler := service.NewReconcileService(productRepo, txRepo, commissionService, ledgerService,
		service.ReconcileOptions{Workers: *workers, BatchSize: *batchSize}, zlog)

	result, err := reconciler.Reconcile(ctx)
	if err != nil {
		zlog.Error("reconciliation failed", zap.Error(err))
		os.Exit(1)
	}

	log.Printf("created=%d skipped=%d failed=%d rate=%s", result.Created, result.Skipped, result.Failed, result.Rate)
	if result.Failed > 0 {
		os.Exit(2)
	}
}
