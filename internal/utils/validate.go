package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks struct fields against their validate tags and
// returns a human-readable description of the first failure.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationMessage flattens a validator error into a short message.
func ValidationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "invalid request body"
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, strings.ToLower(fe.Field())+" is required")
		case "email":
			parts = append(parts, "invalid email address")
		case "min":
			parts = append(parts, strings.ToLower(fe.Field())+" too short")
		case "max":
			parts = append(parts, strings.ToLower(fe.Field())+" too long")
		case "oneof":
			parts = append(parts, "invalid "+strings.ToLower(fe.Field()))
		case "len":
			parts = append(parts, strings.ToLower(fe.Field())+" has wrong length")
		default:
			parts = append(parts, "invalid "+strings.ToLower(fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
