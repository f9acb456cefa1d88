package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	wfdomain "github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/shared/track"
)

// streamBuffer はオブザーバからストリームへ渡すイベントのバッファ長です。
// 受信側が追いつかない場合、溢れたイベントは破棄されます（配信はベストエフォート）。
const streamBuffer = 64

// StreamJobEvents はジョブの進捗イベントをServer-Sent Eventsとして配信します。
// 接続直後にconnectedイベントを送り、以降は発行順にイベントを流します。
// ジョブが終端状態に達するとストリームを閉じます。イベントが途絶えている間は
// キープアライブを定期送信し、切断の検出を接続層へ委ねます。
func (h *Handlers) StreamJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// オブザーバはPublish側をブロックしてはならないため、
	// バッファ付きチャネルへのノンブロッキング送信で受け渡す
	ch := make(chan wfdomain.ProgressEvent, streamBuffer)
	token, ok := h.events.Subscribe(jobID, func(ev wfdomain.ProgressEvent) {
		select {
		case ch <- ev:
		default:
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	defer h.events.Unsubscribe(jobID, token)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.writeEvent(w, wfdomain.ProgressEvent{
		Type:      wfdomain.EventConnected,
		JobID:     jobID,
		Message:   "Connected to progress stream",
		Timestamp: time.Now().UTC(),
	})
	flusher.Flush()

	// 購読前に終端へ達していた場合は最終イベントを合成して閉じる
	if job, err := h.registry.Get(jobID); err == nil && job.Status.Terminal() {
		h.writeEvent(w, finalEvent(job.ID, job.Status, job.Error))
		flusher.Flush()
		return
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-keepalive.C:
			h.writeEvent(w, wfdomain.ProgressEvent{
				Type:      wfdomain.EventKeepalive,
				JobID:     jobID,
				Timestamp: time.Now().UTC(),
			})
			flusher.Flush()

		case ev := <-ch:
			// キープアライブは無通信時間に対して送るため、配信のたびに計り直す
			keepalive.Reset(h.keepalive)
			h.writeEvent(w, ev)
			flusher.Flush()
			if ev.Type == wfdomain.EventCompleted || ev.Type == wfdomain.EventError {
				return
			}
		}
	}
}

// writeEvent は単一イベントをSSEフレームとして書き出します。
func (h *Handlers) writeEvent(w http.ResponseWriter, ev wfdomain.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("failed to encode progress event", "job_id", ev.JobID, "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// finalEvent は終端状態のジョブに対応する最終イベントを組み立てます。
func finalEvent(jobID string, status track.Status, jobErr string) wfdomain.ProgressEvent {
	if status == track.StatusFailed {
		return wfdomain.ProgressEvent{
			Type:      wfdomain.EventError,
			JobID:     jobID,
			Message:   fmt.Sprintf("Workflow failed: %s", jobErr),
			Timestamp: time.Now().UTC(),
		}
	}
	return wfdomain.ProgressEvent{
		Type:      wfdomain.EventCompleted,
		JobID:     jobID,
		Progress:  100,
		Message:   "Workflow completed successfully!",
		Timestamp: time.Now().UTC(),
	}
}
