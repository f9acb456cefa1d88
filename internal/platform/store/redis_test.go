package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jinford/brandforge/internal/platform/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newRedisStore(t)

	rec := store.Record{
		Status:  "running",
		Request: json.RawMessage(`{"brand_name":"Acme"}`),
	}

	// Execute
	err := st.Save(ctx, "task-1", rec)

	// Assert
	require.NoError(t, err)

	got, err := st.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, "running", got.Status)
	assert.JSONEq(t, `{"brand_name":"Acme"}`, string(got.Request))
}

func TestRedisStore_Get_NotFound(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newRedisStore(t)

	// Execute
	_, err := st.Get(ctx, "missing")

	// Assert
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStore_List(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newRedisStore(t)

	require.NoError(t, st.Save(ctx, "task-1", store.Record{Status: "pending"}))
	require.NoError(t, st.Save(ctx, "task-2", store.Record{Status: "completed"}))

	// Execute
	records, err := st.List(ctx)

	// Assert
	require.NoError(t, err)
	assert.Len(t, records, 2)

	ids := map[string]string{}
	for _, rec := range records {
		ids[rec.TaskID] = rec.Status
	}
	assert.Equal(t, "pending", ids["task-1"])
	assert.Equal(t, "completed", ids["task-2"])
}

func TestRedisStore_Delete(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newRedisStore(t)
	require.NoError(t, st.Save(ctx, "task-1", store.Record{Status: "failed"}))

	// Execute
	err := st.Delete(ctx, "task-1")

	// Assert
	require.NoError(t, err)
	_, err = st.Get(ctx, "task-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
