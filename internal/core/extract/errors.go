package extract

import "errors"

// Decode failure reasons. They are logged, never returned from Extract.
var (
	ErrMissingNodes = errors.New("flow object has no nodes field")
	ErrMissingEdges = errors.New("flow object has no edges field")
)
