package domain

import "time"

// EventType は進捗イベントの種別です。
type EventType string

const (
	EventConnected    EventType = "connected"
	EventProgress     EventType = "progress"
	EventStepComplete EventType = "step_complete"
	EventCompleted    EventType = "completed"
	EventError        EventType = "error"
	EventKeepalive    EventType = "keepalive"
)

// ProgressEvent はオブザーバへ配信される進捗イベントです。
// 同一ジョブに対するイベントは発行順に観測されます。
type ProgressEvent struct {
	Type      EventType    `json:"type"`
	JobID     string       `json:"job_id"`
	Step      WorkflowStep `json:"step,omitempty"`
	Progress  int          `json:"progress"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// Observer は進捗イベントを受け取るコールバックです。
// 配信はベストエフォートであり、Observer内のエラーは発行側へ伝播しません。
type Observer func(ProgressEvent)
