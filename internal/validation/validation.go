// Package validation checks decoded NetBox webhook payloads before they are
// acted on.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(jsonFieldName)
}

// Struct validates v against its `validate` tags and returns
// ValidationErrors describing every failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		errs.Add(fieldPath(fe.Namespace()), fmt.Sprint(fe.Value()), message(fe))
	}
	return errs
}

// message returns a human-readable message for a validation error.
func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "gt":
		return fmt.Sprintf("must be > %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "cidr":
		return "must be an address in CIDR notation"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace, turning
// "WebhookEnvelope.event" into "event".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// FieldError describes one invalid payload field.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is every field that failed validation.
type ValidationErrors []*FieldError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Add appends a field error.
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, &FieldError{Field: field, Value: value, Message: message})
}
