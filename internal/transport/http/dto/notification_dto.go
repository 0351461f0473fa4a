package dto

import (
	"time"

	"github.com/milanapp/engine/internal/domain/model"
)

type NotificationResponse struct {
	ID             string    `json:"id"`
	ActorProfileID int64     `json:"actor_profile_id"`
	Kind           string    `json:"kind"`
	SubjectKind    string    `json:"subject_kind"`
	SubjectID      int64     `json:"subject_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type NotificationListResponse struct {
	Items []NotificationResponse `json:"items"`
}

func MapNotifications(records []model.Notification) NotificationListResponse {
	items := make([]NotificationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, NotificationResponse{
			ID:             record.ID,
			ActorProfileID: record.ActorProfileID,
			Kind:           record.Kind,
			SubjectKind:    record.SubjectKind,
			SubjectID:      record.SubjectID,
			CreatedAt:      record.CreatedAt,
		})
	}
	return NotificationListResponse{Items: items}
}
