package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarflowx/avatarflowx/internal/core/record"
)

// RecordStore implements record.Store in process memory
type RecordStore struct {
	mu      sync.RWMutex
	byID    map[string]*record.Record
	ordered map[string][]*record.Record
}

// NewRecordStore creates an empty record store
func NewRecordStore() *RecordStore {
	return &RecordStore{
		byID:    make(map[string]*record.Record),
		ordered: make(map[string][]*record.Record),
	}
}

// Insert stores fields under collection and returns the new record
func (r *RecordStore) Insert(_ context.Context, collection string, fields map[string]interface{}) (*record.Record, error) {
	if collection == "" {
		return nil, record.ErrInvalidCollection
	}

	rec := &record.Record{
		ID:         uuid.NewString(),
		Collection: collection,
		Fields:     copyFields(fields),
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.byID[rec.ID] = rec
	r.ordered[collection] = append(r.ordered[collection], rec)
	r.mu.Unlock()

	return clone(rec), nil
}

// FindOne returns the record with id
func (r *RecordStore) FindOne(_ context.Context, id string) (*record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return clone(rec), nil
}

// Query returns the records of collection, oldest first
func (r *RecordStore) Query(_ context.Context, collection string, limit int) ([]*record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.ordered[collection]
	if limit > 0 && limit < len(src) {
		src = src[:limit]
	}
	out := make([]*record.Record, 0, len(src))
	for _, rec := range src {
		out = append(out, clone(rec))
	}
	return out, nil
}

func clone(rec *record.Record) *record.Record {
	c := *rec
	c.Fields = copyFields(rec.Fields)
	return &c
}

// copyFields is shallow; submitted field values are scalars.
func copyFields(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
