package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/brandforge/internal/module/generation/domain"
	"github.com/jinford/brandforge/internal/platform/store"
	"github.com/jinford/brandforge/internal/shared/track"
)

// DefaultWorkers は生成ワーカーのデフォルト数です。
const DefaultWorkers = 4

// taskState はタスク本体とキャンセルトークンをまとめた内部状態です。
type taskState struct {
	task  domain.Task
	token *track.Token
}

// Executor は生成タスクを有限個のワーカーで非同期実行します。
// ワーカー数はハードキャップであり、超過した投入はキューに積まれます
// （拒否もされず、無制限に並列実行されることもありません）。
// タスクの正本はインメモリの状態であり、ステータス遷移のたびにStoreへ書き込まれます。
// 永続化の失敗は記録されるのみで、処理は継続します。
type Executor struct {
	mu    sync.Mutex
	tasks map[string]*taskState
	queue []string

	wake    chan struct{}
	workers int

	store  store.Store
	engine domain.GenerationEngine
	log    *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewExecutor は新しいExecutorを作成します。
// workersが0以下の場合はDefaultWorkersを使用します。
func NewExecutor(st store.Store, engine domain.GenerationEngine, workers int, log *slog.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor{
		tasks:   make(map[string]*taskState),
		wake:    make(chan struct{}, workers),
		workers: workers,
		store:   st,
		engine:  engine,
		log:     log,
	}
}

// Start はワーカーゴルーチンを起動します。二重起動は無視されます。
func (e *Executor) Start(ctx context.Context) {
	e.once.Do(func() {
		e.baseCtx, e.cancel = context.WithCancel(ctx)
		for i := 0; i < e.workers; i++ {
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.workerLoop()
			}()
		}
		e.log.Info("generation workers started", "workers", e.workers)
	})
}

// Shutdown はワーカーを停止し、最大timeoutまで終了を待ちます。
func (e *Executor) Shutdown(timeout time.Duration) {
	if e.cancel == nil {
		return
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.log.Info("generation workers stopped")
	case <-time.After(timeout):
		e.log.Warn("shutdown timed out; some workers may still be running", "timeout", timeout)
	}
}

// Submit は生成タスクをpending状態で登録・永続化し、ワーカープールへ投入します。
// 即座にリターンし、呼び出し側は返されたIDで後からポーリングします。
func (e *Executor) Submit(ctx context.Context, req domain.GenerationRequest) *domain.Task {
	task := domain.Task{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    track.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.tasks[task.ID] = &taskState{task: task, token: track.NewToken()}
	e.queue = append(e.queue, task.ID)
	e.mu.Unlock()

	e.persist(ctx, task)

	select {
	case e.wake <- struct{}{}:
	default:
	}

	e.log.Info("task submitted", "task_id", task.ID, "brand_name", req.BrandName)
	copied := task
	return &copied
}

// Get はタスクを返します。永続ストアを優先し、レコードがない場合に限り
// インメモリ状態へフォールバックします（read-through）。
func (e *Executor) Get(ctx context.Context, id string) (*domain.Task, error) {
	rec, err := e.store.Get(ctx, id)
	if err == nil {
		task := e.taskFromRecord(rec)
		return task, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		e.log.Warn("store read failed; falling back to memory", "task_id", id, "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := st.task
	return &copied, nil
}

// List は全タスクを返します。Getと同じくストア優先で、
// ストアに存在しないタスクのみインメモリ状態から補完します。
func (e *Executor) List(ctx context.Context) []*domain.Task {
	seen := make(map[string]bool)
	var tasks []*domain.Task

	records, err := e.store.List(ctx)
	if err != nil {
		e.log.Warn("store list failed; falling back to memory", "error", err)
	} else {
		for _, rec := range records {
			tasks = append(tasks, e.taskFromRecord(rec))
			seen[rec.TaskID] = true
		}
	}

	e.mu.Lock()
	for id, st := range e.tasks {
		if seen[id] {
			continue
		}
		copied := st.task
		tasks = append(tasks, &copied)
	}
	e.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// Cancel はタスクのキャンセルを要求します。
// 未開始のタスクは即座にfailedへ遷移します。実行中のタスクはフラグのみ立て、
// ワーカーが自身のチェックポイントで観測するまで実行は続きますが、
// ポーリングする呼び出し側が意図を即座に確認できるよう、ステータスは先行して
// failedに書き換えます。インメモリに存在せず永続レコードだけが残っている場合は
// レコードを直接failedへ書き換えます。どちらにも存在しない場合はfalseを返します。
func (e *Executor) Cancel(ctx context.Context, id string) (*domain.Task, bool) {
	e.mu.Lock()
	if st, ok := e.tasks[id]; ok {
		st.token.Cancel()
		if !st.task.Status.Terminal() {
			st.task.Status = track.StatusFailed
			st.task.Error = domain.CancelledMessage
			st.task.Result = nil
		}
		final := st.task
		e.mu.Unlock()

		e.persist(ctx, final)
		e.log.Info("task cancel requested", "task_id", id, "status", string(final.Status))
		copied := final
		return &copied, true
	}
	e.mu.Unlock()

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, false
	}
	rec.Status = string(track.StatusFailed)
	rec.Error = domain.CancelledMessage
	rec.Result = nil
	if err := e.store.Save(ctx, id, rec); err != nil {
		e.log.Warn("failed to persist cancelled record", "task_id", id, "error", err)
	}
	return e.taskFromRecord(rec), true
}

// Delete はタスクをインメモリ状態と永続ストアの両方から削除します。
// 生成タスクは自動では追い出されず、明示的な削除でのみ消えます。
func (e *Executor) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	delete(e.tasks, id)
	e.mu.Unlock()

	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// workerLoop はキューからタスクを取り出して処理するワーカー本体です。
func (e *Executor) workerLoop() {
	for {
		id, ok := e.dequeue()
		if !ok {
			select {
			case <-e.baseCtx.Done():
				return
			case <-e.wake:
			}
			continue
		}
		e.process(e.baseCtx, id)
	}
}

// dequeue はキューの先頭からタスクIDを取り出します。
func (e *Executor) dequeue() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return "", false
	}
	id := e.queue[0]
	e.queue = e.queue[1:]
	return id, true
}

// process は単一タスクを実行します。
// キャンセルフラグは実行前と完了時の2箇所で確認されます。
// 実行前にキャンセル済みの場合、生成エンジンは一切呼び出されません。
func (e *Executor) process(ctx context.Context, id string) {
	e.mu.Lock()
	st, ok := e.tasks[id]
	if !ok || st.task.Status.Terminal() || st.token.Cancelled() {
		// 削除済み、または開始前にキャンセル済み（Cancelが既にfailedへ遷移済み）
		e.mu.Unlock()
		return
	}
	st.task.Status = track.StatusRunning
	snapshot := st.task
	e.mu.Unlock()

	e.persist(ctx, snapshot)
	e.log.Info("task running", "task_id", id)

	result, err := e.invoke(ctx, snapshot.Request)

	e.mu.Lock()
	st, ok = e.tasks[id]
	if !ok {
		// 実行中に削除された場合は結果を破棄する
		e.mu.Unlock()
		return
	}
	switch {
	case st.token.Cancelled():
		// キャンセル後に完了した結果は破棄する。completedへは決して遷移しない
		st.task.Status = track.StatusFailed
		st.task.Error = domain.CancelledMessage
		st.task.Result = nil
	case err != nil:
		st.task.Status = track.StatusFailed
		st.task.Error = err.Error()
	default:
		st.task.Status = track.StatusCompleted
		st.task.Result = result
	}
	final := st.task
	e.mu.Unlock()

	e.persist(ctx, final)
	if final.Status == track.StatusFailed {
		e.log.Warn("task failed", "task_id", id, "error", final.Error)
	} else {
		e.log.Info("task completed", "task_id", id)
	}
}

// invoke は生成エンジンを呼び出し、panicをエラーへ変換します。
// エンジン由来の失敗はタスクのErrorフィールドになるだけで、投入側へは伝播しません。
func (e *Executor) invoke(ctx context.Context, req domain.GenerationRequest) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation engine panicked: %v", r)
		}
	}()
	return e.engine.Generate(ctx, req)
}

// persist はタスクの永続化プロジェクションをStoreへ書き込みます。
// 失敗は致命的ではなく、インメモリ状態がこのプロセスの正本であり続けます。
func (e *Executor) persist(ctx context.Context, task domain.Task) {
	reqJSON, err := json.Marshal(task.Request)
	if err != nil {
		e.log.Warn("failed to encode task request", "task_id", task.ID, "error", err)
	}
	rec := store.Record{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Request: reqJSON,
		Result:  task.Result,
		Error:   task.Error,
	}
	if err := e.store.Save(ctx, task.ID, rec); err != nil {
		e.log.Warn("failed to persist task", "task_id", task.ID, "error", err)
	}
}

// taskFromRecord は永続レコードからタスク表現を復元します。
// 同じIDのインメモリ状態があれば作成時刻を補完します。
func (e *Executor) taskFromRecord(rec store.Record) *domain.Task {
	task := &domain.Task{
		ID:     rec.TaskID,
		Status: track.Status(rec.Status),
		Result: rec.Result,
		Error:  rec.Error,
	}
	if len(rec.Request) > 0 {
		_ = json.Unmarshal(rec.Request, &task.Request)
	}

	e.mu.Lock()
	if st, ok := e.tasks[rec.TaskID]; ok {
		task.CreatedAt = st.task.CreatedAt
	}
	e.mu.Unlock()
	return task
}
