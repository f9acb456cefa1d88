// Package httpapi はワークフロー・生成モジュールへのHTTPインターフェースを提供します。
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultKeepalive はイベントストリームのキープアライブ間隔
	DefaultKeepalive = 30 * time.Second

	// shutdownTimeout はグレースフルシャットダウンの待機時間
	shutdownTimeout = 10 * time.Second
)

// Server はHTTP APIサーバーです。
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer はハンドラ群をルーティングへ束ねたServerを作成します。
func NewServer(port int, h *Handlers, log *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: NewRouter(h),
		},
		log: log,
	}
}

// NewRouter は全エンドポイントを束ねたルーターを作成します。
func NewRouter(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	// ワークフロージョブ
	mux.HandleFunc("POST /api/jobs", h.SubmitJob)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/jobs/{id}/results", h.GetJobResults)
	mux.HandleFunc("GET /api/jobs/{id}/events", h.StreamJobEvents)

	// アーティスティックロゴ生成タスク
	mux.HandleFunc("POST /api/generate/artistic-logo/jobs", h.SubmitTask)
	mux.HandleFunc("GET /api/generate/artistic-logo/jobs", h.ListTasks)
	mux.HandleFunc("GET /api/generate/artistic-logo/jobs/{id}", h.GetTask)
	mux.HandleFunc("POST /api/generate/artistic-logo/jobs/{id}/cancel", h.CancelTask)
	mux.HandleFunc("DELETE /api/generate/artistic-logo/jobs/{id}", h.DeleteTask)

	return mux
}

// Start はHTTPサーバーを起動し、ctxのキャンセルでグレースフルに停止します。
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
