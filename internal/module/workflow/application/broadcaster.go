package application

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/jinford/brandforge/internal/module/workflow/domain"
)

// Broadcaster はジョブ単位の進捗イベントを動的に登録されたオブザーバへ
// ファンアウトします。配信はベストエフォートであり、
// 失敗したオブザーバはスキップされ、残りへの配信は継続します。
type Broadcaster struct {
	mu        sync.Mutex
	subs      map[string]map[int64]domain.Observer
	nextToken int64
	registry  *JobRegistry
	log       *slog.Logger
}

// NewBroadcaster は新しいBroadcasterを作成します。
// ジョブの存在確認のためJobRegistryに依存します。
func NewBroadcaster(registry *JobRegistry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[string]map[int64]domain.Observer),
		registry: registry,
		log:      log,
	}
}

// Subscribe はジョブの進捗オブザーバを登録し、解除用のトークンを返します。
// ジョブが存在しない場合はfalseを返します。
func (b *Broadcaster) Subscribe(jobID string, obs domain.Observer) (int64, bool) {
	if !b.registry.Exists(jobID) {
		return 0, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextToken++
	token := b.nextToken
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int64]domain.Observer)
	}
	b.subs[jobID][token] = obs
	return token, true
}

// Unsubscribe は登録済みのオブザーバを解除します。未登録の場合は何もしません。
func (b *Broadcaster) Unsubscribe(jobID string, token int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if observers, ok := b.subs[jobID]; ok {
		delete(observers, token)
		if len(observers) == 0 {
			delete(b.subs, jobID)
		}
	}
}

// Publish はイベントを現在登録されている全オブザーバへ配信します。
// 登録中の変更と配信の競合を避けるため、配信はスナップショットに対して行います。
// オブザーバがpanicした場合はそのオブザーバのみスキップし、発行側へは伝播しません。
func (b *Broadcaster) Publish(jobID string, ev domain.ProgressEvent) {
	b.mu.Lock()
	observers := b.subs[jobID]
	tokens := make([]int64, 0, len(observers))
	for token := range observers {
		tokens = append(tokens, token)
	}
	// 登録順に配信する
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	snapshot := make([]domain.Observer, 0, len(tokens))
	for _, token := range tokens {
		snapshot = append(snapshot, observers[token])
	}
	b.mu.Unlock()

	for _, obs := range snapshot {
		b.deliver(jobID, obs, ev)
	}
}

// deliver は単一オブザーバへの配信を行い、panicを吸収します。
func (b *Broadcaster) deliver(jobID string, obs domain.Observer, ev domain.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("observer delivery failed",
				"job_id", jobID,
				"event_type", string(ev.Type),
				"reason", r,
			)
		}
	}()
	obs(ev)
}
