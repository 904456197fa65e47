package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// DeletionHandler exposes two-step deletion of records and students.
type DeletionHandler struct {
	service service.DeletionService
	logger  zerolog.Logger
}

// NewDeletionHandler constructs a deletion handler.
func NewDeletionHandler(service service.DeletionService, logger zerolog.Logger) *DeletionHandler {
	return &DeletionHandler{
		service: service,
		logger:  logger.With().Str("component", "deletion_handler").Logger(),
	}
}

// Register wires deletion routes.
func (h *DeletionHandler) Register(router fiber.Router) {
	router.Post("/", h.request)
	router.Delete("/:token", h.confirm)
}

func (h *DeletionHandler) request(c *fiber.Ctx) error {
	var payload dto.DeletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ticket, err := h.service.Request(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "deletion request")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, ticket.Prompt, ticket)
}

func (h *DeletionHandler) confirm(c *fiber.Ctx) error {
	result, err := h.service.Confirm(requestContext(c), c.Params("token"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "deletion")
	}
	return utils.SendSuccess(c, "deleted", result)
}
