package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"biblioradar/internal/httpx"
)

var validate = validator.New()

// validateStruct runs struct-tag validation and converts failures into
// response detail entries.
func validateStruct(s interface{}) []httpx.ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return []httpx.ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]httpx.ErrorDetail, 0, len(invalid))
	for _, fieldErr := range invalid {
		details = append(details, httpx.ErrorDetail{
			Field:   strings.ToLower(fieldErr.Field()),
			Message: validationMessage(fieldErr),
		})
	}
	return details
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "url":
		return "must be a valid URL"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
	case "contains":
		return fmt.Sprintf("must contain %s", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
