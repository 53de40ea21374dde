package model

import "fmt"

// ValidationError reports a configuration entity that failed validation. It
// names the entity kind, the entity (when known), and the offending field, so
// operators can correct the input without digging through logs.
type ValidationError struct {
	Kind   string // entity kind, e.g. "ca", "profile"
	Name   string // entity name, may be empty when the name itself is invalid
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid %s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s: %s", e.Kind, e.Name, e.Field, e.Reason)
}

func invalidf(kind, name, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Name: name, Field: field, Reason: fmt.Sprintf(format, args...)}
}
