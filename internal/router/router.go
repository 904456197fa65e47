package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dismissal-api/internal/config"
	"github.com/noah-isme/dismissal-api/internal/handler"
	"github.com/noah-isme/dismissal-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HealthChecks     map[string]handler.DependencyCheck
	AuthHandler      *handler.AuthHandler
	StudentHandler   *handler.StudentHandler
	DismissalHandler *handler.DismissalHandler
	DeletionHandler  *handler.DeletionHandler
	LunchHandler     *handler.LunchHandler
	ExportHandler    *handler.ExportHandler
	LiveHandler      *handler.LiveHandler
	JWTMiddleware    fiber.Handler
	LiveAuth         fiber.Handler
	SubmitLimiter    fiber.Handler
	MetricsHandler   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students"))
	}
	if deps.DismissalHandler != nil {
		var guards []fiber.Handler
		if deps.SubmitLimiter != nil {
			guards = append(guards, deps.SubmitLimiter)
		}
		deps.DismissalHandler.Register(api.Group("/dismissals"), guards...)
	}
	if deps.LunchHandler != nil {
		deps.LunchHandler.Register(api.Group("/lunch"))
	}
	if deps.LiveHandler != nil {
		liveAuth := deps.LiveAuth
		if liveAuth == nil {
			liveAuth = middleware.OptionalJWT(cfg.JWTSecret)
		}
		deps.LiveHandler.Register(api.Group("/live", liveAuth))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	staff := api.Group("/staff", jwtMiddleware, middleware.RequireRole(middleware.RoleTeacher))

	if deps.StudentHandler != nil {
		deps.StudentHandler.RegisterStaff(staff.Group("/students"))
	}
	if deps.DismissalHandler != nil {
		deps.DismissalHandler.RegisterStaff(staff)
	}
	if deps.DeletionHandler != nil {
		deps.DeletionHandler.Register(staff.Group("/deletions"))
	}
	if deps.ExportHandler != nil {
		deps.ExportHandler.Register(staff)
	}
}
