package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// AuthHandler exposes the staff gate.
type AuthHandler struct {
	service   service.AuthService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/staff", h.staff)
}

func (h *AuthHandler) staff(c *fiber.Ctx) error {
	var payload dto.StaffLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	token, err := h.service.IssueStaffToken(payload.Code)
	if err != nil {
		return sendServiceError(c, h.logger, err, "staff login")
	}
	return utils.SendSuccess(c, "staff token issued", token)
}
