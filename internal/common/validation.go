package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s (got %v)", e.Field, e.Message, e.Value)
}

// Rule checks one value; nil means it passed.
type Rule func(field string, value any) *FieldError

// Validator collects rule failures across fields so callers can report them
// all at once.
type Validator struct {
	failures []FieldError
}

func NewValidator() *Validator { return &Validator{} }

// Field runs rules against value in order, recording every failure.
func (v *Validator) Field(field string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if fe := rule(field, value); fe != nil {
			v.failures = append(v.failures, *fe)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

// ErrorMessage joins all failures with "; ".
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, len(v.failures))
	for i, f := range v.failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err wraps ErrInvalidInput, or returns nil when every rule passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, v.ErrorMessage())
}

// StatusErr is Err as a gRPC InvalidArgument status.
func (v *Validator) StatusErr() error {
	if !v.HasErrors() {
		return nil
	}
	return InvalidArgumentError(v.ErrorMessage())
}

func Required(field string, value any) *FieldError {
	switch s := value.(type) {
	case nil:
	case string:
		if strings.TrimSpace(s) != "" {
			return nil
		}
	case *string:
		if s != nil && strings.TrimSpace(*s) != "" {
			return nil
		}
	default:
		return nil
	}
	return &FieldError{Field: field, Value: value, Message: "is required"}
}

// Positive requires an int greater than zero.
func Positive(field string, value any) *FieldError {
	if n, ok := value.(int); ok && n > 0 {
		return nil
	}
	return &FieldError{Field: field, Value: value, Message: "must be a positive integer"}
}

// OneOf accepts a string from a closed set.
func OneOf(allowed ...string) Rule {
	return func(field string, value any) *FieldError {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return &FieldError{Field: field, Value: value, Message: "must be one of " + strings.Join(allowed, ", ")}
	}
}

// UUID accepts a string in any form uuid.Parse understands.
func UUID(field string, value any) *FieldError {
	if s, ok := value.(string); ok {
		if _, err := uuid.Parse(s); err == nil {
			return nil
		}
	}
	return &FieldError{Field: field, Value: value, Message: "must be a UUID"}
}
