package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	genapp "github.com/jinford/brandforge/internal/module/generation/application"
	gendomain "github.com/jinford/brandforge/internal/module/generation/domain"
	wfapp "github.com/jinford/brandforge/internal/module/workflow/application"
	wfdomain "github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/shared/track"
)

// Handlers はHTTPエンドポイントの実装集合です。
type Handlers struct {
	registry     *wfapp.JobRegistry
	orchestrator *wfapp.Orchestrator
	events       *wfapp.Broadcaster
	executor     *genapp.Executor
	keepalive    time.Duration
	log          *slog.Logger
}

// NewHandlers は新しいHandlersを作成します。
// keepaliveが0以下の場合はDefaultKeepaliveを使用します。
func NewHandlers(
	registry *wfapp.JobRegistry,
	orchestrator *wfapp.Orchestrator,
	events *wfapp.Broadcaster,
	executor *genapp.Executor,
	keepalive time.Duration,
	log *slog.Logger,
) *Handlers {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &Handlers{
		registry:     registry,
		orchestrator: orchestrator,
		events:       events,
		executor:     executor,
		keepalive:    keepalive,
		log:          log,
	}
}

// Health はサーバーの生存確認に応答します。
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitJob はブランドブリーフを受け取り、ワークフロージョブを作成して開始します。
// レスポンスは202で即座に返り、実行は背景で進みます。
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var brief wfdomain.BrandBrief
	if err := json.NewDecoder(r.Body).Decode(&brief); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if brief.BrandName == "" || brief.Industry == "" {
		writeError(w, http.StatusBadRequest, "brand_name and industry are required")
		return
	}

	job := h.registry.Create(brief)
	// リクエストコンテキストはレスポンス返却時にキャンセルされるため、
	// 背景実行へはキャンセルを切り離したコンテキストを渡す
	if err := h.orchestrator.Start(context.WithoutCancel(r.Context()), job.ID); err != nil {
		h.log.Error("failed to start job", "job_id", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": string(track.StatusRunning),
	})
}

// ListJobs は登録済みのジョブ一覧を新しい順に返します。
// limitクエリパラメータで件数を打ち切れます。
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	jobs := h.registry.List(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob はジョブの現在状態を返します。
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, wfdomain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetJobResults は完了済みジョブの成果物を返します。
// 未完了（pending/running）および失敗したジョブに対しては400を返します。
func (h *Handlers) GetJobResults(w http.ResponseWriter, r *http.Request) {
	job, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, wfdomain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	switch job.Status {
	case track.StatusCompleted:
		payload, err := json.Marshal(map[string]any{
			"job_id":  job.ID,
			"status":  string(job.Status),
			"results": job.Results,
		})
		if err != nil {
			h.log.Error("failed to encode job results", "job_id", job.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to encode results")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	case track.StatusFailed:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("job failed: %s", job.Error))
	default:
		writeError(w, http.StatusBadRequest, "job is not completed yet")
	}
}

// SubmitTask はロゴ生成タスクを投入します。
// レスポンスは202で即座に返り、ポーリング先をlocationフィールドで案内します。
func (h *Handlers) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req gendomain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BrandName == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "brand_name and prompt are required")
		return
	}

	task := h.executor.Submit(r.Context(), req)
	location := fmt.Sprintf("/api/generate/artistic-logo/jobs/%s", task.ID)
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"task_id":  task.ID,
		"status":   string(task.Status),
		"location": location,
	})
}

// ListTasks は生成タスクの一覧を新しい順に返します。
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.executor.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTask は生成タスクの現在状態を返します。ポーリング用のエンドポイントです。
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.executor.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, gendomain.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CancelTask は生成タスクのキャンセルを要求します。
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.executor.Cancel(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask は生成タスクを削除します。
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.executor.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.log.Error("failed to delete task", "task_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON はJSONレスポンスを書き出します。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError はエラーレスポンスを書き出します。
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
