package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var (
	messages = map[string]string{
		"required":    "{field} is required",
		"gte":         "{field} must be greater than or equal to {param}",
		"lte":         "{field} must be less than or equal to {param}",
		"oneof":       "{field} must be one of {param}",
		"max":         "{field} must be less than or equal to {param}",
		"min":         "{field} must be greater than or equal to {param}",
		"len":         "{field} must have length {param}",
		"email":       "{field} must be a valid email address",
		"instant":     "{field} must be an RFC3339 timestamp",
		"mimetypes":   "{field} must be one of {param}",
		"maxfilesize": "{field} must not exceed {param} MB",
	}
)

// message turns the first validation error into a readable message and the field it concerns.
func message(err error) (field, msg string) {
	var valErrors val.ValidationErrors

	if errors.As(err, &valErrors) {
		for _, valErr := range valErrors {
			field = valErr.Field()

			msg = messages[valErr.Tag()]
			if msg != "" {
				msg = strings.ReplaceAll(msg, "{field}", field)
				msg = strings.ReplaceAll(msg, "{param}", valErr.Param())

				return field, msg
			}
		}

		return field, valErrors.Error()
	}

	return "", err.Error()
}
