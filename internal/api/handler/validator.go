package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// messages maps "<json field>.<tag>" to the message shown to clients.
var messages = map[string]string{
	"firstName.required": "First name cannot be empty",
	"lastName.required":  "Last name cannot be empty",
	"email.required":     "Invalid email address",
	"email.email":        "Invalid email address",
	"password.required":  "Password is required",
	"password.min":       "Password must be at least 6 characters long",
	"role.required":      "Role is required",
	"role.oneof":         "Invalid role",
	"tenantId.gt":        "Tenant id must be a positive number",
	"name.required":      "Tenant name is required",
	"name.max":           "Tenant name must be at most 100 characters long",
	"address.required":   "Tenant address is required",
	"address.max":        "Tenant address must be at most 255 characters long",
}

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Field failures are returned as a
// *domain.ValidationError with one issue per field.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &domain.ValidationError{Issues: make([]domain.ValidationIssue, 0, len(ve))}
	for _, fe := range ve {
		out.Issues = append(out.Issues, domain.ValidationIssue{
			Path:     fe.Field(),
			Msg:      fieldError(fe),
			Location: "body",
		})
	}
	return out
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
