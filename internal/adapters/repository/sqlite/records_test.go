package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarflowx/avatarflowx/internal/core/record"
)

var _ record.Store = (*RecordStore)(nil)

func TestRecordStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewRecordStore(openTestDB(t), "form_submissions")
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx))

	first, err := store.Insert(ctx, "contact", map[string]interface{}{"email": "a@example.com", "age": 30})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = store.Insert(ctx, "contact", map[string]interface{}{"email": "b@example.com"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "newsletter", map[string]interface{}{"email": "c@example.com"})
	require.NoError(t, err)

	got, err := store.FindOne(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "contact", got.Collection)
	assert.Equal(t, "a@example.com", got.Fields["email"])
	// numbers come back through JSON
	assert.Equal(t, float64(30), got.Fields["age"])

	contact, err := store.Query(ctx, "contact", 0)
	require.NoError(t, err)
	assert.Len(t, contact, 2)

	limited, err := store.Query(ctx, "contact", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.Query(ctx, "unknown", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	_, err = store.FindOne(ctx, "missing")
	assert.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestRecordStore_Validation(t *testing.T) {
	_, err := NewRecordStore(nil, "bad name")
	assert.ErrorIs(t, err, record.ErrInvalidTable)

	store, err := NewRecordStore(nil, "records")
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), "", nil)
	assert.ErrorIs(t, err, record.ErrInvalidCollection)
}
