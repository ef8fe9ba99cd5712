package handler

import (
	"go-market-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	reconciler service.ReconcileService
	log        *zap.Logger
}

func NewAdminHandler(r service.ReconcileService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{reconciler: r, log: log}
}

// Reconcile backfills transactions for sold products that have none.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	h.log.Info("reconciliation requested", zap.String("user_id", getUserID(c).String()))

	result, err := h.reconciler.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Reconciliation finished", "data": result})
}
