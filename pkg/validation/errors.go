// Package validation validates editor API payloads and imported flow graphs
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicFlow is returned when cycle rejection is enabled and the flow loops
var ErrCyclicFlow = errors.New("flow contains a cycle")

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// MarshalValidationErrors renders errors as the API error body
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	return json.Marshal(errorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors parses an API error body
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Errors, nil
}

type errorResponse struct {
	Errors ValidationErrors `json:"errors"`
	Count  int              `json:"count"`
}
