package sqlite

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nickelsound/3DprinterMonitor/internal/monitor"
	"github.com/nickelsound/3DprinterMonitor/internal/store/model"
)

// HistoryStore persists webhook emissions and analysis passes. It implements
// monitor.HistoryRecorder.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) RecordEvent(ctx context.Context, rec monitor.EventRecord) error {
	var payload datatypes.JSON
	if rec.Kind == monitor.EventStatusChanged {
		body := map[string]string{"state": rec.State}
		if rec.DisplayName != "" {
			body["display_name"] = rec.DisplayName
		}
		raw, _ := json.Marshal(body)
		payload = datatypes.JSON(raw)
	}
	row := model.WebhookEventModel{
		Kind:        rec.Kind,
		State:       rec.State,
		DisplayName: rec.DisplayName,
		Payload:     payload,
		SendError:   rec.SendError,
		CreatedAt:   rec.At,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *HistoryStore) RecordAnalysis(ctx context.Context, rec monitor.AnalysisRecord) error {
	row := model.AnalysisPassModel{
		TraceID:          rec.TraceID,
		Verdict:          string(rec.Verdict),
		PreviousVerdict:  string(rec.PreviousVerdict),
		ConfirmedFailure: rec.ConfirmedFailure,
		StopFired:        rec.StopFired,
		ResponseExcerpt:  rec.ResponseExcerpt,
		Note:             rec.Note,
		CreatedAt:        rec.At,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// RecentEvents returns the newest events first.
func (s *HistoryStore) RecentEvents(ctx context.Context, limit int) ([]model.WebhookEventModel, error) {
	var rows []model.WebhookEventModel
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentAnalyses returns the newest analysis passes first.
func (s *HistoryStore) RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisPassModel, error) {
	var rows []model.AnalysisPassModel
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
