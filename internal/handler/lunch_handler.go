package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// LunchHandler serves the daily menu.
type LunchHandler struct {
	service  service.LunchService
	location *time.Location
	logger   zerolog.Logger
}

// NewLunchHandler constructs a lunch handler; dates are read in loc.
func NewLunchHandler(service service.LunchService, loc *time.Location, logger zerolog.Logger) *LunchHandler {
	return &LunchHandler{
		service:  service,
		location: loc,
		logger:   logger.With().Str("component", "lunch_handler").Logger(),
	}
}

// Register wires lunch routes.
func (h *LunchHandler) Register(router fiber.Router) {
	router.Get("/", h.menu)
}

func (h *LunchHandler) menu(c *fiber.Ctx) error {
	day, err := dateQuery(c, "date", h.location, reconcile.StartOfDay(time.Now().In(h.location)))
	if err != nil {
		return sendServiceError(c, h.logger, err, "lunch")
	}

	refresh := false
	if raw := c.Query("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "refresh must be a boolean")
		}
	}

	response := h.service.Menu(requestContext(c), day, refresh)
	message := "lunch menu"
	if response.Fallback {
		message = "lunch menu unavailable"
	}
	return utils.SendSuccess(c, message, response)
}
