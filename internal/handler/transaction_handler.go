package handler

import (
	"time"

	"go-market-ledger/internal/middleware"
	"go-market-ledger/internal/model"
	"go-market-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	service service.LedgerService
	log     *zap.Logger
	now     func() time.Time
}

func NewTransactionHandler(s service.LedgerService, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: s, log: log, now: time.Now}
}

// CreateTransaction settles a purchase by the caller.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.BuyerID = getUserID(c)

	tx, err := h.service.Settle(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Transaction recorded", "data": tx})
}

func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	page, perPage := pageQuery(c)
	result, err := h.service.ListTransactions(c.UserContext(), getUserID(c), page, perPage)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	canViewAll := middleware.HasPrivilege(c, model.PrivilegeTransactionViewAll)
	tx, err := h.service.GetTransaction(c.UserContext(), id, getUserID(c), canViewAll)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(tx)
}

// GetSummary aggregates settlements over a trailing window.
// Query params: range = 7d (default), 1m, 3m, 6m, 12m
func (h *TransactionHandler) GetSummary(c *fiber.Ctx) error {
	rangeParam := c.Query("range", "7d")
	endDate := h.now()

	var startDate time.Time
	switch rangeParam {
	case "7d":
		startDate = endDate.AddDate(0, 0, -7)
	case "1m":
		startDate = endDate.AddDate(0, -1, 0)
	case "3m":
		startDate = endDate.AddDate(0, -3, 0)
	case "6m":
		startDate = endDate.AddDate(0, -6, 0)
	case "12m":
		startDate = endDate.AddDate(0, -12, 0)
	default:
		return badRequest(c, "Invalid range. Use one of 7d, 1m, 3m, 6m, 12m")
	}

	summary, err := h.service.GetSummary(c.UserContext(), startDate, endDate)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"range":      rangeParam,
		"start_date": startDate,
		"end_date":   endDate,
		"summary":    summary,
	})
}
