package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// DismissalHandler serves submission, the boards and staff edits.
type DismissalHandler struct {
	service service.DismissalService
	logger  zerolog.Logger
}

// NewDismissalHandler constructs a dismissal handler.
func NewDismissalHandler(service service.DismissalService, logger zerolog.Logger) *DismissalHandler {
	return &DismissalHandler{
		service: service,
		logger:  logger.With().Str("component", "dismissal_handler").Logger(),
	}
}

// Register wires the student-facing routes. submitGuard runs before submit.
func (h *DismissalHandler) Register(router fiber.Router, submitGuard ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, submitGuard...), h.submit)
	router.Post("/", handlers...)
	router.Get("/today", h.today)
}

// RegisterStaff wires the staff dashboard routes.
func (h *DismissalHandler) RegisterStaff(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/dismissals", h.list)
	router.Patch("/dismissals/:id", h.edit)
}

func (h *DismissalHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitDismissalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.service.Submit(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "dismissal submit")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "dismissal recorded", dto.SubmitDismissalResponse{
		Record:     dto.NewDismissalResponse(record, h.service.Location()),
		CooldownMS: dto.SubmitCooldown.Milliseconds(),
	})
}

func (h *DismissalHandler) today(c *fiber.Ctx) error {
	return h.statusFor(c, h.service.Today())
}

func (h *DismissalHandler) dashboard(c *fiber.Ctx) error {
	day, err := dateQuery(c, "date", h.service.Location(), h.service.Today())
	if err != nil {
		return sendServiceError(c, h.logger, err, "dashboard")
	}
	return h.statusFor(c, day)
}

func (h *DismissalHandler) statusFor(c *fiber.Ctx, day time.Time) error {
	statuses, err := h.service.DailyStatus(requestContext(c), day)
	if err != nil {
		return sendServiceError(c, h.logger, err, "daily status")
	}
	return utils.SendSuccess(c, "daily status", dto.NewDailyStatusResponse(day, statuses, h.service.Location()))
}

func (h *DismissalHandler) list(c *fiber.Ctx) error {
	day, err := dateQuery(c, "date", h.service.Location(), h.service.Today())
	if err != nil {
		return sendServiceError(c, h.logger, err, "dismissal list")
	}

	records, err := h.service.ListForDate(requestContext(c), day)
	if err != nil {
		return sendServiceError(c, h.logger, err, "dismissal list")
	}
	return utils.SendSuccess(c, "dismissals", fiber.Map{
		"date":    reconcile.DateKey(day),
		"records": dto.NewDismissalResponseSlice(records, h.service.Location()),
	})
}

func (h *DismissalHandler) edit(c *fiber.Ctx) error {
	var payload dto.EditDismissalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.service.Edit(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "dismissal edit")
	}
	return utils.SendSuccess(c, "dismissal updated", dto.NewDismissalResponse(record, h.service.Location()))
}
