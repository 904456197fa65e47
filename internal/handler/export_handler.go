package handler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler streams range exports as spreadsheets.
type ExportHandler struct {
	exports    service.ExportService
	dismissals service.DismissalService
	logger     zerolog.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports service.ExportService, dismissals service.DismissalService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		exports:    exports,
		dismissals: dismissals,
		logger:     logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register wires export routes.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("/export", h.export)
}

func (h *ExportHandler) export(c *fiber.Ctx) error {
	if strings.TrimSpace(c.Query("start")) == "" || strings.TrimSpace(c.Query("end")) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "start and end are required")
	}

	loc := h.dismissals.Location()
	today := h.dismissals.Today()
	start, err := dateQuery(c, "start", loc, today)
	if err != nil {
		return sendServiceError(c, h.logger, err, "export")
	}
	end, err := dateQuery(c, "end", loc, today)
	if err != nil {
		return sendServiceError(c, h.logger, err, "export")
	}

	file, err := h.exports.Workbook(requestContext(c), start, end)
	if err != nil {
		return sendServiceError(c, h.logger, err, "export")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"dismissals.xlsx\"; filename*=UTF-8''%s", url.PathEscape(file.Filename)))
	c.Set("X-Export-Rows", fmt.Sprintf("%d", file.Rows))
	return c.Status(fiber.StatusOK).Send(file.Content)
}
