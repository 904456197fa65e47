package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/middleware"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/service"
)

// LiveHandler upgrades viewers onto the live reconciliation feed.
type LiveHandler struct {
	sessions service.LiveSessionService
	location *time.Location
	logger   zerolog.Logger
}

// NewLiveHandler constructs the websocket handler.
func NewLiveHandler(sessions service.LiveSessionService, loc *time.Location, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		sessions: sessions,
		location: loc,
		logger:   logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group. The
// group must run middleware.OptionalJWT: a teacher token opens a staff
// session that may edit records, anything else opens a read-only viewer.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			c.Locals("live_staff", middleware.HasRole(c, middleware.RoleTeacher))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	var day time.Time
	if raw := strings.TrimSpace(conn.Query("date")); raw != "" {
		parsed, err := reconcile.ParseDate(raw, h.location)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "date must be YYYY-MM-DD"))
			_ = conn.Close()
			return
		}
		day = parsed
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	correlation := middleware.CorrelationIDFromContext(baseCtx)
	if correlation == "" {
		correlation = fmt.Sprint(conn.Locals("correlation_id"))
	}

	staff, _ := conn.Locals("live_staff").(bool)

	h.logger.Info().Str("correlation_id", correlation).Bool("staff", staff).Msg("live websocket connected")
	h.sessions.ServeConnection(conn, service.LiveSessionOptions{
		Date:          day,
		CorrelationID: correlation,
		Context:       baseCtx,
		Staff:         staff,
	})
	h.logger.Info().Str("correlation_id", correlation).Msg("live websocket disconnected")
}
