package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jinford/brandforge/internal/module/generation/application"
	"github.com/jinford/brandforge/internal/module/generation/domain"
	testutil "github.com/jinford/brandforge/internal/module/generation/testing"
	"github.com/jinford/brandforge/internal/platform/store"
	"github.com/jinford/brandforge/internal/shared/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)
	return st
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		BrandName: "Acme",
		Prompt:    "a minimalist mountain logo",
	}
}

// pollUntil は条件が満たされるまでポーリングする
func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestExecutor_SubmitAndComplete(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := testStore(t)
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			assert.Equal(t, "Acme", req.BrandName)
			return json.RawMessage(`{"variants":[{"title":"peak"}]}`), nil
		},
	}
	executor := application.NewExecutor(st, engine, 2, testLogger())
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)

	// Execute
	task := executor.Submit(ctx, testRequest())

	// Assert: 投入直後はpendingで即座に返る
	require.NotEmpty(t, task.ID)
	assert.Equal(t, track.StatusPending, task.Status)

	pollUntil(t, 5*time.Second, func() bool {
		current, err := executor.Get(ctx, task.ID)
		return err == nil && current.Status == track.StatusCompleted
	})

	final, err := executor.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"variants":[{"title":"peak"}]}`, string(final.Result))
	assert.Empty(t, final.Error)

	// 永続レコードも終端状態まで追従している
	rec, err := st.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, string(track.StatusCompleted), rec.Status)
}

func TestExecutor_EngineFailure(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := testStore(t)
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			return nil, errors.New("image model unavailable")
		},
	}
	executor := application.NewExecutor(st, engine, 2, testLogger())
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)

	// Execute
	task := executor.Submit(ctx, testRequest())
	pollUntil(t, 5*time.Second, func() bool {
		current, err := executor.Get(ctx, task.ID)
		return err == nil && current.Status.Terminal()
	})

	// Assert: エンジンの失敗はタスクの失敗になり、投入側へは伝播しない
	final, err := executor.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusFailed, final.Status)
	assert.Contains(t, final.Error, "image model unavailable")
	assert.Empty(t, final.Result)
}

func TestExecutor_EnginePanic(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := testStore(t)
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			panic("unexpected engine state")
		},
	}
	executor := application.NewExecutor(st, engine, 1, testLogger())
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)

	// Execute
	task := executor.Submit(ctx, testRequest())
	pollUntil(t, 5*time.Second, func() bool {
		current, err := executor.Get(ctx, task.ID)
		return err == nil && current.Status.Terminal()
	})

	// Assert: panicはワーカー境界で回収され、タスクの失敗として記録される
	final, err := executor.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusFailed, final.Status)
	assert.Contains(t, final.Error, "panicked")
}

func TestExecutor_CancelBeforeStart(t *testing.T) {
	// Setup: ワーカーを起動せずに投入し、開始前キャンセルを成立させる
	ctx := context.Background()
	st := testStore(t)
	var invoked atomic.Bool
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			invoked.Store(true)
			return json.RawMessage(`{}`), nil
		},
	}
	executor := application.NewExecutor(st, engine, 1, testLogger())

	task := executor.Submit(ctx, testRequest())

	// Execute
	cancelled, ok := executor.Cancel(ctx, task.ID)

	// Assert
	require.True(t, ok)
	assert.Equal(t, track.StatusFailed, cancelled.Status)
	assert.Equal(t, domain.CancelledMessage, cancelled.Error)

	// ワーカー起動後もエンジンは一切呼び出されない
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)
	time.Sleep(100 * time.Millisecond)
	assert.False(t, invoked.Load())

	final, err := executor.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusFailed, final.Status)
}

func TestExecutor_CancelRunningTask(t *testing.T) {
	// Setup: エンジンをブロックさせて実行中キャンセルを再現する
	ctx := context.Background()
	st := testStore(t)
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			close(started)
			<-release
			return json.RawMessage(`{"late":"result"}`), nil
		},
	}
	executor := application.NewExecutor(st, engine, 1, testLogger())
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)

	task := executor.Submit(ctx, testRequest())
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not start")
	}

	// Execute
	cancelled, ok := executor.Cancel(ctx, task.ID)

	// Assert: ポーリング側は即座にキャンセルを観測できる
	require.True(t, ok)
	assert.Equal(t, track.StatusFailed, cancelled.Status)
	assert.Equal(t, domain.CancelledMessage, cancelled.Error)

	// エンジンが遅れて成功しても、キャンセル済みタスクはcompletedにならない
	close(release)
	time.Sleep(100 * time.Millisecond)
	final, err := executor.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusFailed, final.Status)
	assert.Equal(t, domain.CancelledMessage, final.Error)
	assert.Empty(t, final.Result)
}

func TestExecutor_Cancel_PersistedRecordOnly(t *testing.T) {
	// Setup: インメモリにない（別プロセスが残した）永続レコードだけが存在する
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.Save(ctx, "orphan", store.Record{
		Status:  string(track.StatusRunning),
		Request: json.RawMessage(`{"brand_name":"Acme"}`),
	}))

	executor := application.NewExecutor(st, &testutil.MockGenerationEngine{}, 1, testLogger())

	// Execute
	task, ok := executor.Cancel(ctx, "orphan")

	// Assert: レコードが直接failedへ書き換えられる
	require.True(t, ok)
	assert.Equal(t, track.StatusFailed, task.Status)
	assert.Equal(t, domain.CancelledMessage, task.Error)

	rec, err := st.Get(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, string(track.StatusFailed), rec.Status)
	assert.Equal(t, domain.CancelledMessage, rec.Error)
}

func TestExecutor_Cancel_UnknownTask(t *testing.T) {
	// Setup
	ctx := context.Background()
	executor := application.NewExecutor(testStore(t), &testutil.MockGenerationEngine{}, 1, testLogger())

	// Execute
	_, ok := executor.Cancel(ctx, "missing")

	// Assert
	assert.False(t, ok)
}

func TestExecutor_Get_ReadsPersistedRecord(t *testing.T) {
	// Setup: ストアのレコードが優先して読まれる
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.Save(ctx, "restored", store.Record{
		Status:  string(track.StatusCompleted),
		Request: json.RawMessage(`{"brand_name":"Acme","prompt":"logo"}`),
		Result:  json.RawMessage(`{"variants":[]}`),
	}))

	executor := application.NewExecutor(st, &testutil.MockGenerationEngine{}, 1, testLogger())

	// Execute
	task, err := executor.Get(ctx, "restored")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, track.StatusCompleted, task.Status)
	assert.Equal(t, "Acme", task.Request.BrandName)
	assert.JSONEq(t, `{"variants":[]}`, string(task.Result))
}

func TestExecutor_Get_NotFound(t *testing.T) {
	// Setup
	ctx := context.Background()
	executor := application.NewExecutor(testStore(t), &testutil.MockGenerationEngine{}, 1, testLogger())

	// Execute
	_, err := executor.Get(ctx, "missing")

	// Assert
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestExecutor_List_MergesStoreAndMemory(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.Save(ctx, "persisted", store.Record{Status: string(track.StatusCompleted)}))

	executor := application.NewExecutor(st, &testutil.MockGenerationEngine{}, 1, testLogger())
	submitted := executor.Submit(ctx, testRequest())

	// Execute
	tasks := executor.List(ctx)

	// Assert: 永続レコードとインメモリのタスクが重複なく統合される
	require.Len(t, tasks, 2)
	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	assert.True(t, ids["persisted"])
	assert.True(t, ids[submitted.ID])
}

func TestExecutor_Delete(t *testing.T) {
	// Setup
	ctx := context.Background()
	st := testStore(t)
	executor := application.NewExecutor(st, &testutil.MockGenerationEngine{}, 1, testLogger())
	task := executor.Submit(ctx, testRequest())

	// Execute
	err := executor.Delete(ctx, task.ID)

	// Assert
	require.NoError(t, err)
	_, err = executor.Get(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = st.Get(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecutor_QueuesBeyondWorkerCount(t *testing.T) {
	// Setup: ワーカー1に対して複数タスクを投入しても拒否されず全件処理される
	ctx := context.Background()
	st := testStore(t)
	var processed atomic.Int32
	engine := &testutil.MockGenerationEngine{
		GenerateFunc: func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
			processed.Add(1)
			return json.RawMessage(`{}`), nil
		},
	}
	executor := application.NewExecutor(st, engine, 1, testLogger())
	executor.Start(ctx)
	defer executor.Shutdown(time.Second)

	// Execute
	tasks := make([]*domain.Task, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, executor.Submit(ctx, testRequest()))
	}

	pollUntil(t, 5*time.Second, func() bool {
		return processed.Load() == 5
	})

	// Assert
	for _, task := range tasks {
		pollUntil(t, 5*time.Second, func() bool {
			current, err := executor.Get(ctx, task.ID)
			return err == nil && current.Status == track.StatusCompleted
		})
	}
}
