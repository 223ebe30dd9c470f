package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 4 << 20

// DecodeJSON decodes the request body into dst and validates it. On failure it
// writes a 400 with the validation errors and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		WriteErrors(w, http.StatusBadRequest, ValidationErrors{{
			Field:   "request_body",
			Message: fmt.Sprintf("invalid JSON: %v", err),
		}})
		return false
	}
	return Check(w, dst)
}

// Check validates an already-populated payload and writes a 400 on failure
func Check(w http.ResponseWriter, payload interface{}) bool {
	err := ValidateStruct(payload)
	if err == nil {
		return true
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		WriteErrors(w, http.StatusBadRequest, verrs)
		return false
	}
	WriteErrors(w, http.StatusBadRequest, ValidationErrors{{
		Field:   "body",
		Message: err.Error(),
	}})
	return false
}

// WriteErrors writes validation errors as JSON response
func WriteErrors(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body, err := MarshalValidationErrors(errs)
	if err != nil {
		_, _ = w.Write([]byte(`{"errors":[{"field":"validation","message":"internal validation error"}],"count":1}`))
		return
	}
	_, _ = w.Write(body)
}
