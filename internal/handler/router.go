package handler

import (
	"go-market-ledger/internal/middleware"
	"go-market-ledger/internal/model"
	"go-market-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Offer       *OfferHandler
	Transaction *TransactionHandler
	Commission  *CommissionHandler
	Admin       *AdminHandler
}

// RegisterRoutes mounts the ledger API under /api/v1. Every route requires
// a bearer token.
func RegisterRoutes(app *fiber.App, h Handlers, tokens *jwt.Manager) {
	api := app.Group("/api/v1", middleware.RequireAuth(tokens))

	// Offers
	api.Post("/offers", h.Offer.CreateOffer)
	api.Get("/offers/sent", h.Offer.GetSentOffers)
	api.Get("/offers/received", h.Offer.GetReceivedOffers)
	api.Get("/offers/:id", h.Offer.GetOffer)
	api.Post("/offers/:id/accept", h.Offer.AcceptOffer)
	api.Post("/offers/:id/reject", h.Offer.RejectOffer)

	// Transactions; summary before :id so it is not parsed as an ID
	api.Post("/transactions", h.Transaction.CreateTransaction)
	api.Get("/transactions", h.Transaction.GetTransactions)
	api.Get("/transactions/summary", middleware.RequirePrivilege(model.PrivilegeTransactionViewAll), h.Transaction.GetSummary)
	api.Get("/transactions/:id", h.Transaction.GetTransaction)

	// Commission
	api.Get("/commission/rate", h.Commission.GetRate)
	api.Get("/commission/settings",
		middleware.RequireAnyPrivilege(model.PrivilegeCommissionManage, model.PrivilegeTransactionViewAll),
		h.Commission.GetSettings)
	api.Post("/commission/settings", middleware.RequirePrivilege(model.PrivilegeCommissionManage), h.Commission.SetRate)

	// Admin
	api.Post("/admin/reconcile", middleware.RequirePrivilege(model.PrivilegeLedgerReconcile), h.Admin.Reconcile)
}
