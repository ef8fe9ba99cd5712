package handler

import (
	"go-market-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OfferHandler struct {
	service service.OfferService
	log     *zap.Logger
}

func NewOfferHandler(s service.OfferService, log *zap.Logger) *OfferHandler {
	return &OfferHandler{service: s, log: log}
}

func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	var req service.CreateOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	offer, err := h.service.CreateOffer(c.UserContext(), getUserID(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Offer created", "data": offer})
}

func (h *OfferHandler) AcceptOffer(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid offer ID")
	}

	offer, err := h.service.AcceptOffer(c.UserContext(), id, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Offer accepted", "data": offer})
}

func (h *OfferHandler) RejectOffer(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid offer ID")
	}

	offer, err := h.service.RejectOffer(c.UserContext(), id, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Offer rejected", "data": offer})
}

func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid offer ID")
	}

	offer, err := h.service.GetOffer(c.UserContext(), id, getUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(offer)
}

// GetSentOffers lists the caller's offers as buyer.
// Query params: page (default 1), per_page (default 20, max 100)
func (h *OfferHandler) GetSentOffers(c *fiber.Ctx) error {
	page, perPage := pageQuery(c)
	result, err := h.service.ListSentOffers(c.UserContext(), getUserID(c), page, perPage)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *OfferHandler) GetReceivedOffers(c *fiber.Ctx) error {
	page, perPage := pageQuery(c)
	result, err := h.service.ListReceivedOffers(c.UserContext(), getUserID(c), page, perPage)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
