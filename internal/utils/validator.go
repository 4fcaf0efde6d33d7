package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts validator/v10 to echo.Validator.
type RequestValidator struct {
	V *validator.Validate
}

// NewRequestValidator reports fields by their JSON names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{V: v}
}

// Validate runs struct tags on i and flattens failures into one message
// such as "email: must be a valid email; rating: must be <= 5".
func (rv *RequestValidator) Validate(i any) error {
	err := rv.V.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + ": is required"
	case "email":
		return name + ": must be a valid email"
	case "min":
		return fmt.Sprintf("%s: must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s: must be >= %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s", name, fe.Param())
	case "datetime":
		return name + ": must be a YYYY-MM-DD date"
	}
	return fmt.Sprintf("%s: failed %s", name, fe.Tag())
}
