package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/middleware"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/internal/utils"
)

// errInvalidDate is returned for malformed YYYY-MM-DD query values.
var errInvalidDate = errors.New("date must be YYYY-MM-DD")

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// dateQuery parses key as a calendar date in loc, or returns fallback when absent.
func dateQuery(c *fiber.Ctx, key string, loc *time.Location, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	day, err := reconcile.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return day, nil
}

// sendServiceError maps service failures onto the response envelope.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrInvalidStudentName), errors.Is(err, service.ErrInvalidRange), errors.Is(err, errInvalidDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, service.ErrRecordNotFound), errors.Is(err, service.ErrConfirmationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAdminCode):
		return utils.SendError(c, fiber.StatusUnauthorized, "코드가 올바르지 않습니다.")
	case errors.Is(err, service.ErrTransientWrite), errors.Is(err, service.ErrStoreUnavailable):
		requestLogger(logger, c).Warn().Err(err).Msg(action + " failed against the store")
		return utils.SendError(c, fiber.StatusServiceUnavailable, action+" failed, please retry")
	default:
		requestLogger(logger, c).Error().Err(err).Msg(action + " failed")
		return utils.SendError(c, fiber.StatusInternalServerError, action+" failed")
	}
}
