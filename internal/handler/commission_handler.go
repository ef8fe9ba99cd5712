package handler

import (
	"go-market-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CommissionHandler struct {
	service service.CommissionService
	log     *zap.Logger
}

func NewCommissionHandler(s service.CommissionService, log *zap.Logger) *CommissionHandler {
	return &CommissionHandler{service: s, log: log}
}

type setRateRequest struct {
	Rate *decimal.Decimal `json:"rate"`
}

func (h *CommissionHandler) GetRate(c *fiber.Ctx) error {
	rate, err := h.service.CurrentRate(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"rate": rate})
}

func (h *CommissionHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.service.ListSettings(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"data": settings})
}

func (h *CommissionHandler) SetRate(c *fiber.Ctx) error {
	var req setRateRequest
	if err := c.BodyParser(&req); err != nil || req.Rate == nil {
		return badRequest(c, "Invalid JSON: rate is required")
	}

	setting, err := h.service.SetRate(c.UserContext(), *req.Rate, getUserID(c).String())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Commission rate updated", "data": setting})
}
