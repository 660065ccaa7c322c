package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"worksense/backend/logging"
	"worksense/backend/models"
	"worksense/backend/repositories"
	"worksense/backend/services"
)

type itemCompletedEvent struct {
	ProjectID  string `json:"projectId"`
	SprintID   string `json:"sprintId"`
	ItemID     string `json:"itemId"`
	OriginalID string `json:"originalId"`
	AssigneeID string `json:"assigneeId"`
}

// ItemCompletedHandler awards leaderboard points and notifies the assignee
// when a board card reaches done.
type ItemCompletedHandler struct {
	gamification  *services.GamificationService
	backlog       *services.BacklogService
	notifications *repositories.NotificationRepo
}

func NewItemCompletedHandler(gamification *services.GamificationService, backlog *services.BacklogService, notifications *repositories.NotificationRepo) *ItemCompletedHandler {
	return &ItemCompletedHandler{
		gamification:  gamification,
		backlog:       backlog,
		notifications: notifications,
	}
}

func (h *ItemCompletedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var event itemCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to decode item completed event: %w", err)
	}

	size := models.SizeM
	name := event.OriginalID
	if original, err := h.backlog.GetItem(ctx, event.ProjectID, event.OriginalID); err == nil {
		if original.Size != "" {
			size = original.Size
		}
		name = original.Name
	}

	if err := h.gamification.AwardForCompletion(ctx, event.ProjectID, event.AssigneeID, event.OriginalID, size); err != nil {
		return err
	}

	if h.notifications != nil && event.AssigneeID != "" {
		notification := &models.Notification{
			Username: event.AssigneeID,
			Message:  fmt.Sprintf("You earned %d points for completing %q.", services.PointsForSize(size), name),
		}
		if err := h.notifications.CreateNotification(notification); err != nil {
			logging.Logger.Errorf("Event ID: NOTIFICATION_CREATE_FAILED, Description: Failed to store completion notification: %v", err)
		}
	}

	return nil
}
