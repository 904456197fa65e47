package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// NewValidator builds the request validator with the dismissal rules registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("dismissal_method", func(fl validator.FieldLevel) bool {
		return models.IsDismissalMethod(fl.Field().String())
	})
	return validate
}
