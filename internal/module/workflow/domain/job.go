package domain

import (
	"time"

	"github.com/jinford/brandforge/internal/shared/track"
)

// JobStatus はワークフロージョブの処理状態です。
type JobStatus = track.Status

// WorkflowStep はワークフローのフェーズを表します。
type WorkflowStep string

const (
	StepInitializing  WorkflowStep = "initializing"
	StepBrandIdentity WorkflowStep = "brand_identity"
	StepMarketing     WorkflowStep = "marketing"
	StepFinalizing    WorkflowStep = "finalizing"
)

// BrandBrief はワークフローへの入力となるブランド概要です。
// エンジンにとっては不透明なパラメータ集合であり、ここでは内容を解釈しません。
type BrandBrief struct {
	BrandName       string   `json:"brand_name"`
	Industry        string   `json:"industry"`
	TargetAudience  string   `json:"target_audience"`
	BrandValues     []string `json:"brand_values,omitempty"`
	StylePreference string   `json:"style_preference,omitempty"`
	DesiredMood     string   `json:"desired_mood,omitempty"`
	BrandVoice      string   `json:"brand_voice,omitempty"`
	Mission         string   `json:"mission,omitempty"`
	Vision          string   `json:"vision,omitempty"`
	MarketingGoals  []string `json:"marketing_goals,omitempty"`
	Timeline        string   `json:"timeline,omitempty"`
}

// Job は複数ステップからなるワークフローの実行単位です。
//
// 不変条件:
//   - StatusはPENDING→RUNNING→{COMPLETED,FAILED}の順にのみ遷移する
//   - RUNNING中のProgressは単調非減少
//   - CompletedAtは終端状態のときに限り設定される
//   - Errorは失敗時に限り設定される
type Job struct {
	ID          string         `json:"job_id"`
	Status      JobStatus      `json:"status"`
	Brief       BrandBrief     `json:"brand_brief"`
	CurrentStep WorkflowStep   `json:"current_step,omitempty"`
	Progress    int            `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Results     map[string]any `json:"-"`
}

// Clone はジョブのコピーを返します。Resultsマップも複製されるため、
// 呼び出し側の変更が登録済みのジョブへ波及することはありません。
func (j *Job) Clone() *Job {
	c := *j
	if j.Results != nil {
		c.Results = make(map[string]any, len(j.Results))
		for k, v := range j.Results {
			c.Results[k] = v
		}
	}
	return &c
}
