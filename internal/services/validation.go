package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the struct tags of req and reports the first failing field
// as an ErrValidation.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%w: %s is required", ErrValidation, fe.Field())
		case "max":
			return fmt.Errorf("%w: %s is too long", ErrValidation, fe.Field())
		default:
			return fmt.Errorf("%w: %s is invalid", ErrValidation, fe.Field())
		}
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
