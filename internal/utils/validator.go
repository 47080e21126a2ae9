// internal/utils/validator.go
package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxEANLength = 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("ean", validateEAN)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// validateEAN accepts GTIN-style codes: digits only, at most 20 of them.
// Check digits are not verified because internal store codes share the field.
func validateEAN(fl validator.FieldLevel) bool {
	ean := fl.Field().String()

	if len(ean) == 0 || len(ean) > MaxEANLength {
		return false
	}

	for _, r := range ean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// FirstValidationMessage flattens a validation error into one line.
func FirstValidationMessage(err error) string {
	if errs := GetValidationErrors(err); len(errs) > 0 {
		return errs[0].Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return strings.ToLower(e.Field()) + " is required"
	case "gte":
		return strings.ToLower(e.Field()) + " must be greater than or equal to " + e.Param()
	case "gt":
		return strings.ToLower(e.Field()) + " must be greater than " + e.Param()
	case "max":
		return strings.ToLower(e.Field()) + " must be at most " + e.Param() + " characters"
	case "ean":
		return "ean must contain only digits (at most 20)"
	case "oneof":
		return strings.ToLower(e.Field()) + " must be one of: " + e.Param()
	default:
		return strings.ToLower(e.Field()) + " is invalid"
	}
}
