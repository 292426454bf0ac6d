package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts validator/v10 to echo.Validator
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator that reports fields by their JSON names
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// bindAndValidate binds the request and runs struct validation, writing a
// validation problem response when either fails. The returned bool is false
// when a response has already been written.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, NewValidationError(c, "Invalid request body", nil)
	}
	if c.Echo().Validator == nil {
		return true, nil
	}
	if err := c.Validate(req); err != nil {
		return false, NewValidationError(c, "Validation failed", validationErrors(err))
	}
	return true, nil
}

func validationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Is required"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "datetime":
		return "Must be a date in YYYY-MM-DD format"
	case "uuid":
		return "Must be a valid UUID"
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
