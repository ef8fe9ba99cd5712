package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value,omitempty"`
}

func (e *ErrorResponse) String() string {
	if e.Value == "" {
		return fmt.Sprintf("field '%s' failed on '%s'", e.FailedField, e.Tag)
	}
	return fmt.Sprintf("field '%s' failed on '%s=%s'", e.FailedField, e.Tag, e.Value)
}

var validate = validator.New()

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*ErrorResponse{{FailedField: "request", Tag: "invalid"}}
	}
	for _, err := range verrs {
		errs = append(errs, &ErrorResponse{
			FailedField: err.StructNamespace(),
			Tag:         err.Tag(),
			Value:       err.Param(),
		})
	}
	return errs
}

// Summary joins validation failures into one message.
func Summary(errs []*ErrorResponse) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}
