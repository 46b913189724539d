package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// FieldError describes a single invalid input field. Nested fields use dotted paths
// (e.g. contact_preferences.best_time); "body" refers to the payload as a whole.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload cannot be turned into a valid record.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type fieldErrors []FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Errors: f}
}

// decodeError converts an encoding/json error into a *ValidationError.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// Go 1.24+ prefixes fields promoted from createPayload's embedded Client with "Client.".
		field := strings.TrimPrefix(typeErr.Field, "Client.")
		if field == "" {
			field = "body"
		}
		return &ValidationError{Errors: []FieldError{{
			Field:   field,
			Message: "invalid type: expected " + jsonKind(typeErr.Type.Kind().String()) + ", got " + typeErr.Value,
		}}}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &ValidationError{Errors: []FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}}}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "array"
	case "struct", "map":
		return "object"
	default:
		return goKind
	}
}
