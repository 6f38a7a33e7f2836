package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConcurrentUpdate = errors.New("daily limit was changed by another request")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrNotOwner         = errors.New("merchant belongs to another wallet")
)

// ValidationError is a malformed request. Fields lists missing or invalid
// input names when known.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func missingFields(fields map[string]bool, order ...string) *ValidationError {
	var missing []string
	for _, name := range order {
		if !fields[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Message: "Missing required fields", Fields: missing}
}
