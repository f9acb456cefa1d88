package application

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/shared/track"
)

// DefaultCapacity は保持するジョブ数の上限です。
// 超過した場合は終端状態のジョブのうち作成が古いものから順に追い出します。
const DefaultCapacity = 100

// JobRegistry はジョブ識別子から状態レコードへのインメモリマップを管理します。
// ジョブの正本はこのレジストリが排他的に所有し、
// 変更はすべてミューテックス配下のUpdate経由で行われます。
type JobRegistry struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.Job
	capacity int
	log      *slog.Logger
}

// NewJobRegistry は新しいJobRegistryを作成します。
// capacityが0以下の場合はDefaultCapacityを使用します。
func NewJobRegistry(capacity int, log *slog.Logger) *JobRegistry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &JobRegistry{
		jobs:     make(map[string]*domain.Job),
		capacity: capacity,
		log:      log,
	}
}

// Create は新しいジョブをPENDING状態で登録し、そのコピーを返します。
// 識別子は衝突耐性のある乱数ソース（UUID v4）から生成されます。I/Oは行いません。
func (r *JobRegistry) Create(brief domain.BrandBrief) *domain.Job {
	job := &domain.Job{
		ID:        uuid.NewString(),
		Status:    track.StatusPending,
		Brief:     brief,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.evictLocked()
	r.mu.Unlock()

	r.log.Info("job created", "job_id", job.ID, "brand_name", brief.BrandName)
	return job.Clone()
}

// Get はジョブのコピーを返します。存在しない場合はErrJobNotFoundを返します。
func (r *JobRegistry) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// Exists はジョブが登録されているかを返します。
func (r *JobRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[id]
	return ok
}

// List は作成時刻の新しい順にジョブのコピーを返します。
// limitが正の場合はその件数で打ち切ります。
func (r *JobRegistry) List(limit int) []*domain.Job {
	r.mu.RLock()
	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

// Update はミューテックス配下でジョブを変更します。
// read-modify-writeを不可分にするため、ジョブの変更は必ずこのメソッドを経由します。
func (r *JobRegistry) Update(id string, fn func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	fn(job)
	return nil
}

// TryStart はPENDING→RUNNINGの遷移を試みます。
// すでに開始済みの場合はfalseを返し、状態は変更しません（冪等）。
func (r *JobRegistry) TryStart(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	if !track.CanTransition(job.Status, track.StatusRunning) {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = track.StatusRunning
	job.StartedAt = &now
	job.CurrentStep = domain.StepInitializing
	return true, nil
}

// evictLocked は容量超過時に終端状態の古いジョブを削除します。
// PENDING/RUNNINGのジョブはどれほど古くても削除されません。
func (r *JobRegistry) evictLocked() {
	if len(r.jobs) <= r.capacity {
		return
	}

	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	excess := len(r.jobs) - r.capacity
	for _, job := range jobs {
		if excess <= 0 {
			break
		}
		if !job.Status.Terminal() {
			continue
		}
		delete(r.jobs, job.ID)
		excess--
		r.log.Debug("job evicted", "job_id", job.ID, "status", string(job.Status))
	}
}
