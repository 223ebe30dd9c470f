package services

import "errors"

// Service errors
var (
	ErrSessionNotFound    = errors.New("editor session not found")
	ErrNoFlowFound        = errors.New("no flow found in generated text")
	ErrInvalidFlow        = errors.New("generated flow cannot be applied")
	ErrCheckpointMismatch = errors.New("checkpoint belongs to another flow")
	ErrNoGenerator        = errors.New("no flow generator configured")
)
