package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Headers the dashboard reads from cross-origin responses: export downloads
// and the submit cooldown rely on them.
var exposedHeaders = []string{
	fiber.HeaderContentDisposition,
	"X-Export-Rows",
	fiber.HeaderRetryAfter,
	CorrelationHeader,
}

// Config customises the middleware registration pipeline.
type Config struct {
	Logger      *zerolog.Logger
	AllowOrigin string
}

// Register attaches the common middlewares used across the API.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	origins := cfg.AllowOrigin
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + CorrelationHeader,
		AllowMethods:  "GET,POST,PATCH,DELETE,OPTIONS",
		ExposeHeaders: strings.Join(exposedHeaders, ", "),
	}))
}
