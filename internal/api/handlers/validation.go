package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// validationError returns the 400 body describing every failed field of s,
// or nil when s is valid.
func validationError(s interface{}) fiber.Map {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fiber.Map{"error": "Invalid request"}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "min":
			fields[fe.Field()] = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "max":
			fields[fe.Field()] = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		default:
			fields[fe.Field()] = fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
		}
	}

	return fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	}
}
