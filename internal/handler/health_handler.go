package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dismissal-api/internal/config"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// DependencyCheck verifies one backing dependency.
type DependencyCheck func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck reports service health. A failing check marks the service
// degraded without failing the request so clients can show a banner.
func HealthCheck(cfg config.Config, checks map[string]DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		payload := HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			Dependencies: make(map[string]string, len(checks)),
		}

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				payload.Dependencies[name] = "unavailable"
				payload.Status = "degraded"
				continue
			}
			payload.Dependencies[name] = "ok"
		}

		message := "service healthy"
		if payload.Status != "ok" {
			message = "service degraded"
		}
		return utils.SendSuccess(c, message, payload)
	}
}
