package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"worksense/backend/models"
	"worksense/backend/repositories"
)

type backlogConfirmedEvent struct {
	ProjectID string  `json:"projectId"`
	ParentID  string  `json:"parentId"`
	ItemType  string  `json:"itemType"`
	Count     int     `json:"count"`
	Author    *string `json:"author"`
}

// BacklogConfirmedHandler notifies the confirming user that their approved
// AI suggestions were persisted.
type BacklogConfirmedHandler struct {
	notifications *repositories.NotificationRepo
}

func NewBacklogConfirmedHandler(notifications *repositories.NotificationRepo) *BacklogConfirmedHandler {
	return &BacklogConfirmedHandler{notifications: notifications}
}

func (h *BacklogConfirmedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var event backlogConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to decode backlog confirmed event: %w", err)
	}
	if event.Author == nil || *event.Author == "" {
		return nil
	}

	noun := "epics"
	if event.ItemType == string(models.TypeStory) {
		noun = "stories"
	}

	return h.notifications.CreateNotification(&models.Notification{
		Username: *event.Author,
		Message:  fmt.Sprintf("%d generated %s were added to your backlog.", event.Count, noun),
	})
}
