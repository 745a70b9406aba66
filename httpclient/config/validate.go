package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every invalid field of a Settings value.
type ValidationError struct {
	Fields []FieldError
}

// FieldError describes one invalid field.
type FieldError struct {
	// Field is the dotted struct path, e.g. "Retry.MaxAttempts".
	Field string
	Rule  string
	Value any
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", f.Field, f.Rule, f.Value))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSettings
}

// Validate checks s against its field rules.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: strings.TrimPrefix(fe.Namespace(), "Settings."),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	return &ValidationError{Fields: fields}
}
