package handler

import (
	"errors"

	"go-market-ledger/internal/middleware"
	"go-market-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:    fiber.StatusBadRequest,
	service.KindForbidden:     fiber.StatusForbidden,
	service.KindNotFound:      fiber.StatusNotFound,
	service.KindStateConflict: fiber.StatusConflict,
	service.KindDuplicate:     fiber.StatusOK,
	service.KindStorage:       fiber.StatusInternalServerError,
}

// respondError is the only place service errors become HTTP responses.
// Storage failures are logged and hidden from the client.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := service.KindOf(err)
	status := kindStatus[kind]

	if kind == service.KindStorage {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	body := fiber.Map{"error": err.Error()}
	var e *service.Error
	if errors.As(err, &e) {
		body["code"] = e.Code
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// getUserID returns the caller set by middleware.RequireAuth.
func getUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(middleware.LocalUserID).(uuid.UUID)
	return id
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func pageQuery(c *fiber.Ctx) (page, perPage int) {
	return c.QueryInt("page", 1), c.QueryInt("per_page", 20)
}
