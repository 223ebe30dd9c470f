// Package record defines schemaless documents grouped by collection and the
// store port that persists them. Form submissions are stored this way.
package record

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidTable      = errors.New("invalid table name")
	ErrInvalidCollection = errors.New("collection is required")
)

// Record is one stored document
type Record struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Fields     map[string]interface{} `json:"fields"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Store persists records
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Services depend on interface, not implementations
type Store interface {
	// Insert stores fields under collection and returns the new record
	Insert(ctx context.Context, collection string, fields map[string]interface{}) (*Record, error)

	// FindOne returns the record with id
	FindOne(ctx context.Context, id string) (*Record, error)

	// Query returns the records of collection oldest first; limit 0 means all
	Query(ctx context.Context, collection string, limit int) ([]*Record, error)
}
