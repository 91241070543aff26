package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEventModel is one emitted webhook (status change or stop escalation).
type WebhookEventModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Kind        string `gorm:"index;size:32"`
	State       string `gorm:"size:64"`
	DisplayName string `gorm:"size:255"`
	// Payload keeps the JSON body as sent, for audit.
	Payload   datatypes.JSON
	SendError string
	CreatedAt time.Time `gorm:"index"`
}

func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// AnalysisPassModel is one vision analysis pass and the state transition it
// produced.
type AnalysisPassModel struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	TraceID          string `gorm:"index;size:64"`
	Verdict          string `gorm:"size:8"`
	PreviousVerdict  string `gorm:"size:8"`
	ConfirmedFailure bool
	StopFired        bool
	ResponseExcerpt  string
	Note             string
	CreatedAt        time.Time `gorm:"index"`
}

func (AnalysisPassModel) TableName() string {
	return "analysis_passes"
}
