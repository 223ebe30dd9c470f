package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors callers can match with errors.Is
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrServer        = errors.New("provider server error")
	ErrNetwork       = errors.New("network error")
	ErrDecode        = errors.New("decode error")
	ErrEmptyResponse = errors.New("provider returned no text")
	ErrUnknown       = errors.New("unknown llm provider")
	ErrMissingAPIKey = errors.New("llm api key is required")
)

// ProviderError carries provider context around a sentinel
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%d %s)", e.Provider, e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// sentinelForStatus maps an HTTP status to a sentinel
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return ErrBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrServer
	}
}
