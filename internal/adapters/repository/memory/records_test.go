package memory

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
	store := NewRecordStore()

	fields := map[string]interface{}{"email": "a@example.com"}
	rec, err := store.Insert(ctx, "contact", fields)
	require.NoError(t, err)

	fields["email"] = "mutated"
	got, err := store.FindOne(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Fields["email"])

	_, err = store.Insert(ctx, "contact", map[string]interface{}{"email": "b@example.com"})
	require.NoError(t, err)

	all, err := store.Query(ctx, "contact", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, rec.ID, all[0].ID)

	one, err := store.Query(ctx, "contact", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	empty, err := store.Query(ctx, "other", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = store.FindOne(ctx, "missing")
	assert.ErrorIs(t, err, record.ErrRecordNotFound)

	_, err = store.Insert(ctx, "", nil)
	assert.ErrorIs(t, err, record.ErrInvalidCollection)
}
