package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jinford/brandforge/internal/platform/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *store.FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	st, err := store.NewFileStore(path)
	require.NoError(t, err)
	return st
}

func TestFileStore_SaveAndGet(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	rec := store.Record{
		Status:  "pending",
		Request: json.RawMessage(`{"brand_name":"Acme"}`),
	}

	// Execute
	err := st.Save(ctx, "task-1", rec)

	// Assert
	require.NoError(t, err)

	got, err := st.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, "pending", got.Status)
	assert.JSONEq(t, `{"brand_name":"Acme"}`, string(got.Request))
}

func TestFileStore_Get_NotFound(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	// Execute
	_, err := st.Get(ctx, "missing")

	// Assert
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStore_Save_Overwrite(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	require.NoError(t, st.Save(ctx, "task-1", store.Record{Status: "pending"}))

	// Execute
	err := st.Save(ctx, "task-1", store.Record{Status: "completed", Result: json.RawMessage(`{"ok":true}`)})

	// Assert
	require.NoError(t, err)
	got, err := st.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.JSONEq(t, `{"ok":true}`, string(got.Result))
}

func TestFileStore_List(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	require.NoError(t, st.Save(ctx, "task-b", store.Record{Status: "running"}))
	require.NoError(t, st.Save(ctx, "task-a", store.Record{Status: "pending"}))

	// Execute
	records, err := st.List(ctx)

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "task-a", records[0].TaskID)
	assert.Equal(t, "task-b", records[1].TaskID)
}

func TestFileStore_List_Empty(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	// Execute
	records, err := st.List(ctx)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStore_Delete(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)
	require.NoError(t, st.Save(ctx, "task-1", store.Record{Status: "completed"}))

	// Execute
	err := st.Delete(ctx, "task-1")

	// Assert
	require.NoError(t, err)
	_, err = st.Get(ctx, "task-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// 存在しないIDの削除はエラーにならない
	assert.NoError(t, st.Delete(ctx, "task-1"))
}

func TestFileStore_ConcurrentSave(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := newFileStore(t)

	// Execute
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%02d", n)
			assert.NoError(t, st.Save(ctx, id, store.Record{Status: "pending"}))
		}(i)
	}
	wg.Wait()

	// Assert: 並行書き込みで更新が失われない
	records, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
