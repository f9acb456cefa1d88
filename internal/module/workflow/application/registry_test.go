package application_test

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jinford/brandforge/internal/module/workflow/application"
	"github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/shared/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBrief(name string) domain.BrandBrief {
	return domain.BrandBrief{
		BrandName: name,
		Industry:  "coffee",
	}
}

func TestJobRegistry_CreateAndGet(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())

	// Execute
	job := registry.Create(testBrief("Acme"))

	// Assert
	require.NotEmpty(t, job.ID)
	assert.Equal(t, track.StatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, job.CreatedAt.IsZero())

	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "Acme", got.Brief.BrandName)
}

func TestJobRegistry_Get_NotFound(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())

	// Execute
	_, err := registry.Get("missing")

	// Assert
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRegistry_Create_ConcurrentUniqueIDs(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(1000, testLogger())

	// Execute
	var mu sync.Mutex
	ids := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			job := registry.Create(testBrief(fmt.Sprintf("brand-%d", n)))
			mu.Lock()
			ids[job.ID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// Assert: 衝突なし
	assert.Len(t, ids, 100)
}

func TestJobRegistry_List_NewestFirst(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())

	first := registry.Create(testBrief("first"))
	// CreatedAtの順序を確定させる
	require.NoError(t, registry.Update(first.ID, func(j *domain.Job) {
		j.CreatedAt = j.CreatedAt.Add(-time.Second)
	}))
	second := registry.Create(testBrief("second"))

	// Execute
	jobs := registry.List(0)

	// Assert
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	// limit指定で打ち切られる
	limited := registry.List(1)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func TestJobRegistry_TryStart(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	job := registry.Create(testBrief("Acme"))

	// Execute
	started, err := registry.TryStart(job.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, started)

	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusRunning, got.Status)
	assert.Equal(t, domain.StepInitializing, got.CurrentStep)
	require.NotNil(t, got.StartedAt)

	// 二度目は冪等に無視される
	started, err = registry.TryStart(job.ID)
	require.NoError(t, err)
	assert.False(t, started)
}

func TestJobRegistry_TryStart_NotFound(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())

	// Execute
	started, err := registry.TryStart("missing")

	// Assert
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.False(t, started)
}

func TestJobRegistry_Eviction_SkipsActiveJobs(t *testing.T) {
	// Setup: 容量2のレジストリに終端1件・実行中1件を登録しておく
	registry := application.NewJobRegistry(2, testLogger())

	done := registry.Create(testBrief("done"))
	require.NoError(t, registry.Update(done.ID, func(j *domain.Job) {
		j.Status = track.StatusCompleted
		j.CreatedAt = j.CreatedAt.Add(-2 * time.Second)
	}))

	running := registry.Create(testBrief("running"))
	require.NoError(t, registry.Update(running.ID, func(j *domain.Job) {
		j.Status = track.StatusRunning
		j.CreatedAt = j.CreatedAt.Add(-time.Second)
	}))

	// Execute: 容量超過を引き起こす
	third := registry.Create(testBrief("third"))

	// Assert: 終端ジョブだけが追い出される
	_, err := registry.Get(done.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = registry.Get(running.ID)
	assert.NoError(t, err)
	_, err = registry.Get(third.ID)
	assert.NoError(t, err)
}

func TestJobRegistry_Update_IsolatedFromCallerCopies(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	job := registry.Create(testBrief("Acme"))

	// Execute: 取得したコピーを書き換えても登録済みジョブへ波及しない
	clone, err := registry.Get(job.ID)
	require.NoError(t, err)
	clone.Status = track.StatusFailed
	clone.Brief.BrandName = "mutated"

	// Assert
	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, track.StatusPending, got.Status)
	assert.Equal(t, "Acme", got.Brief.BrandName)
}
