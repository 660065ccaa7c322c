package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"worksense/backend/middleware"
	"worksense/backend/repositories"
)

type NotificationHandler struct {
	Repo *repositories.NotificationRepo
}

func NewNotificationHandler(repo *repositories.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Repo: repo}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	notifications, err := h.Repo.GetNotificationsByUsername(claims.Username)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	if err := h.Repo.MarkAsRead(claims.Username, mux.Vars(r)["notificationId"]); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}

	writeMessage(w, http.StatusOK, "Notification marked as read")
}
