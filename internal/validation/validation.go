package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"whatsapp-lite/internal/apperr"
)

var (
	validate = newValidator()
	phoneRe  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	return v
}

// Struct checks the validate tags of v and reports the first failure as a validation error.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Validation(Message(err))
	}
	return nil
}

// Message renders a validator failure (including gin binding failures) as client-facing text.
func Message(err error) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return "invalid request body"
	}
	first := vErrs[0]
	field := first.Field()
	if field != "" {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	switch first.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, first.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, first.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, first.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(first.Param(), " ", ", "))
	case "email":
		return field + " must be a valid email"
	case "alphanum":
		return field + " must only contain letters and numbers"
	case "phone":
		return field + " must be a valid phone number"
	default:
		return field + " is invalid"
	}
}
