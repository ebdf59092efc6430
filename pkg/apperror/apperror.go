package apperror

import (
	"errors"
	"strings"
)

// Error is a recoverable business outcome carrying a machine-readable code
// and a message suitable for direct display.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Violation is a single failed validation check.
// Err optionally keeps the underlying error so errors.Is still matches it.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// ValidationError aggregates every violation found by a validation pass.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

const CodeValidationFailed = "validation_failed"

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasCode reports whether any violation carries the given code.
func (e *ValidationError) HasCode(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Unwrap exposes the causes attached to the violations
func (e *ValidationError) Unwrap() []error {
	var errs []error
	for _, v := range e.Violations {
		if v.Err != nil {
			errs = append(errs, v.Err)
		}
	}
	return errs
}

// OnlyTransient reports whether every violation stems from a collaborator
// being unavailable, i.e. retrying the same request may succeed.
func (e *ValidationError) OnlyTransient() bool {
	if len(e.Violations) == 0 {
		return false
	}
	for _, v := range e.Violations {
		if !strings.HasSuffix(v.Code, "_unavailable") {
			return false
		}
	}
	return true
}

// CodeOf extracts the machine-readable code from err, or "" when err carries none.
func CodeOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeValidationFailed
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
