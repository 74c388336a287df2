package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// RegisterCustomValidations регистрирует правила проекта в валидаторе.
func RegisterCustomValidations(v *validator.Validate) error {
	return v.RegisterValidation("username", isUsername)
}

func isUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}
