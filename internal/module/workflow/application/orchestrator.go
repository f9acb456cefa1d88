package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/shared/track"
)

// 進捗パーセンテージの固定ウェイポイント。
// 実測の進捗率ではなく設計上合意された粗いマイルストーンです。
const (
	progressInit           = 0
	progressIdentityEntry  = 10
	progressIdentityDone   = 50
	progressMarketingEntry = 55
	progressMarketingDone  = 90
	progressFinalizing     = 95
	progressCompleted      = 100
)

// Orchestrator はワークフロージョブの状態機械を駆動します。
// initializing → brand_identity → marketing → finalizing → {completed|failed}
// の順にステップを実行し、各ステップの前後で進捗イベントを発行します。
// ブロッキングするステップ処理はワーカーゴルーチン上で実行され、
// 呼び出し側（HTTPハンドラ等）をブロックすることはありません。
type Orchestrator struct {
	registry *JobRegistry
	events   *Broadcaster
	engine   domain.WorkflowEngine
	log      *slog.Logger
}

// NewOrchestrator は新しいOrchestratorを作成します。
func NewOrchestrator(
	registry *JobRegistry,
	events *Broadcaster,
	engine domain.WorkflowEngine,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		events:   events,
		engine:   engine,
		log:      log,
	}
}

// Start はジョブの実行を開始します。
// 現在のステータスがPENDINGでない場合は何もせず正常終了します（冪等）。
// 開始時は即座に0%の進捗イベントを発行し、ステップ実行は背景ゴルーチンへ委譲します。
func (o *Orchestrator) Start(ctx context.Context, jobID string) error {
	started, err := o.registry.TryStart(jobID)
	if err != nil {
		return err
	}
	if !started {
		o.log.Debug("start ignored: job is not pending", "job_id", jobID)
		return nil
	}

	o.log.Info("job started", "job_id", jobID)
	o.publish(jobID, domain.EventProgress, domain.StepInitializing, progressInit,
		"Initializing workflow...")

	go o.run(ctx, jobID)
	return nil
}

// run はワークフロー全体を実行します。単一のゴルーチンがジョブごとの
// イベント発行を直列化するため、進捗イベントは発行順に観測されます。
func (o *Orchestrator) run(ctx context.Context, jobID string) {
	job, err := o.registry.Get(jobID)
	if err != nil {
		o.log.Error("job disappeared before execution", "job_id", jobID, "error", err)
		return
	}
	brief := job.Brief

	// ステップ1: ブランドアイデンティティ生成
	o.enterStep(jobID, domain.StepBrandIdentity, progressIdentityEntry,
		"Starting brand identity creation...")
	identity, err := o.engine.RunBrandIdentity(ctx, brief)
	if err != nil {
		o.fail(jobID, domain.StepBrandIdentity, fmt.Errorf("brand identity step failed: %w", err))
		return
	}
	o.completeStep(jobID, domain.StepBrandIdentity, progressIdentityDone,
		"Brand identity creation completed!")

	// ステップ2: マーケティング戦略生成
	o.enterStep(jobID, domain.StepMarketing, progressMarketingEntry,
		"Starting marketing campaign development...")
	styleGuide, _ := identity["style_guide"].(map[string]any)
	marketing, err := o.engine.RunMarketing(ctx, brief, styleGuide)
	if err != nil {
		o.fail(jobID, domain.StepMarketing, fmt.Errorf("marketing step failed: %w", err))
		return
	}
	o.completeStep(jobID, domain.StepMarketing, progressMarketingDone,
		"Marketing campaign development completed!")

	// 仕上げ: 成果物を格納して完了
	o.enterStep(jobID, domain.StepFinalizing, progressFinalizing, "Finalizing results...")
	now := time.Now().UTC()
	updateErr := o.registry.Update(jobID, func(j *domain.Job) {
		j.Results = map[string]any{
			"brand_identity": identity,
			"marketing":      marketing,
		}
		j.Status = track.StatusCompleted
		j.CompletedAt = &now
		j.Progress = progressCompleted
	})
	if updateErr != nil {
		o.log.Error("failed to finalize job", "job_id", jobID, "error", updateErr)
		return
	}

	o.log.Info("job completed", "job_id", jobID)
	o.publish(jobID, domain.EventCompleted, domain.StepFinalizing, progressCompleted,
		"Workflow completed successfully!")
}

// enterStep はステップ入口の状態更新と進捗イベント発行を行います。
func (o *Orchestrator) enterStep(jobID string, step domain.WorkflowStep, progress int, msg string) {
	if err := o.registry.Update(jobID, func(j *domain.Job) {
		j.CurrentStep = step
		j.Progress = progress
	}); err != nil {
		o.log.Warn("failed to update job step", "job_id", jobID, "step", string(step), "error", err)
		return
	}
	o.publish(jobID, domain.EventProgress, step, progress, msg)
}

// completeStep はステップ出口の進捗更新とstep_completeイベント発行を行います。
func (o *Orchestrator) completeStep(jobID string, step domain.WorkflowStep, progress int, msg string) {
	if err := o.registry.Update(jobID, func(j *domain.Job) {
		j.Progress = progress
	}); err != nil {
		o.log.Warn("failed to update job progress", "job_id", jobID, "error", err)
		return
	}
	o.publish(jobID, domain.EventStepComplete, step, progress, msg)
}

// fail はジョブを失敗状態へ遷移させ、errorイベントを発行します。
// 以降のステップは実行されません。
func (o *Orchestrator) fail(jobID string, step domain.WorkflowStep, cause error) {
	now := time.Now().UTC()
	var progress int
	if err := o.registry.Update(jobID, func(j *domain.Job) {
		j.Status = track.StatusFailed
		j.Error = cause.Error()
		j.CompletedAt = &now
		progress = j.Progress
	}); err != nil {
		o.log.Error("failed to mark job as failed", "job_id", jobID, "error", err)
		return
	}

	o.log.Error("job failed", "job_id", jobID, "step", string(step), "error", cause)
	o.publish(jobID, domain.EventError, step, progress,
		fmt.Sprintf("Workflow failed: %s", cause.Error()))
}

// publish は進捗イベントを組み立てて発行します。
func (o *Orchestrator) publish(jobID string, typ domain.EventType, step domain.WorkflowStep, progress int, msg string) {
	o.events.Publish(jobID, domain.ProgressEvent{
		Type:      typ,
		JobID:     jobID,
		Step:      step,
		Progress:  progress,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}
