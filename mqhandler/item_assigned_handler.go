package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"worksense/backend/models"
	"worksense/backend/repositories"
	"worksense/backend/services"
)

type itemAssignedEvent struct {
	ProjectID  string `json:"projectId"`
	SprintID   string `json:"sprintId"`
	OriginalID string `json:"originalId"`
	AssigneeID string `json:"assigneeId"`
}

// ItemAssignedHandler notifies a user when a sprint card is assigned to them.
type ItemAssignedHandler struct {
	backlog       *services.BacklogService
	notifications *repositories.NotificationRepo
}

func NewItemAssignedHandler(backlog *services.BacklogService, notifications *repositories.NotificationRepo) *ItemAssignedHandler {
	return &ItemAssignedHandler{backlog: backlog, notifications: notifications}
}

func (h *ItemAssignedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var event itemAssignedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to decode item assigned event: %w", err)
	}
	if event.AssigneeID == "" {
		return nil
	}

	name := event.OriginalID
	if original, err := h.backlog.GetItem(ctx, event.ProjectID, event.OriginalID); err == nil {
		name = original.Name
	}

	return h.notifications.CreateNotification(&models.Notification{
		Username: event.AssigneeID,
		Message:  fmt.Sprintf("You were assigned to %q on the sprint board.", name),
	})
}
