package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-market-ledger/internal/config"
	"go-market-ledger/internal/handler"
	"go-market-ledger/internal/middleware"
	"go-market-ledger/internal/repository"
	"go-market-ledger/internal/service"
	"go-market-ledger/internal/ws"
	"go-market-ledger/pkg/database"
	"go-market-ledger/pkg/jwt"
	"go-market-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	// 2. Setup Database
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

	// 3. Setup WebSocket Hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	hub := ws.NewHub(zlog)
	go hub.Run(ctx)

	// 4. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	offerRepo := repository.NewOfferRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	commissionRepo := repository.NewCommissionRepo(db)

	commissionService := service.NewCommissionService(commissionRepo, cfg.Ledger.DefaultCommissionRate, zlog)
	offerService := service.NewOfferService(offerRepo, productRepo, hub, zlog)
	ledgerService := service.NewLedgerService(txRepo, productRepo, offerRepo, commissionService, hub, zlog)
	reconcileService := service.NewReconcileService(productRepo, txRepo, commissionService, ledgerService,
		service.ReconcileOptions{Workers: cfg.Reconcile.Workers, BatchSize: cfg.Reconcile.BatchSize}, zlog)

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	handler.RegisterRoutes(app, handler.Handlers{
		Offer:       handler.NewOfferHandler(offerService, zlog),
		Transaction: handler.NewTransactionHandler(ledgerService, zlog),
		Commission:  handler.NewCommissionHandler(commissionService, zlog),
		Admin:       handler.NewAdminHandler(reconcileService, zlog),
	}, tokens)

	// WebSocket Route
	app.Use("/ws", middleware.RequireAuth(tokens), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(middleware.LocalUserID).(uuid.UUID)
		client := &ws.Client{UserID: userID.String(), Conn: c}
		if !hub.Register(client) {
			return
		}
		defer hub.Unregister(client)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 6. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Panic("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	stop()
	if err := app.Shutdown(); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exited")
}
