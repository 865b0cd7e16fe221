package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrForbidden            = errors.New("not allowed")
)

// ValidationError is a failed save. Fields maps attribute names to
// human-readable messages, e.g. {"subdomain": ["has already been taken"]}.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			parts = append(parts, k+" "+msg)
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// validationError returns nil for an empty field map so callers can write
// `if err := validationError(m.Validate()); err != nil`.
func validationError(fields map[string][]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// IsValidationError unwraps err into a *ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
