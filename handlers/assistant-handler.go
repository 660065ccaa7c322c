package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"worksense/backend/models"
	"worksense/backend/services"
)

// AssistantHandler serves the AI backlog generation and confirmation routes.
type AssistantHandler struct {
	service *services.AssistantService
}

func NewAssistantHandler(service *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// GenerateEpics handles GET /project/{projectId}/generate-epics.
func (h *AssistantHandler) GenerateEpics(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	if projectID == "" {
		writeMessage(w, http.StatusBadRequest, "projectId is required")
		return
	}

	suggestions, err := h.service.GenerateEpics(r.Context(), projectID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"epics": suggestions})
}

// ConfirmEpics handles POST /project/{projectId}/confirm-epics.
func (h *AssistantHandler) ConfirmEpics(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	if projectID == "" {
		writeMessage(w, http.StatusBadRequest, "projectId is required")
		return
	}

	var body struct {
		Epics []models.ConfirmedItem `json:"epics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	written, err := h.service.ConfirmEpics(r.Context(), projectID, authorFromRequest(r), body.Epics)
	if err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, fmt.Sprintf("%d epics added to the backlog", written))
}

// GenerateStories handles POST /project/{projectId}/stories/generate-stories.
func (h *AssistantHandler) GenerateStories(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var body struct {
		EpicID string `json:"epicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if projectID == "" || body.EpicID == "" {
		writeMessage(w, http.StatusBadRequest, "projectId and epicId are required")
		return
	}

	suggestions, err := h.service.GenerateStories(r.Context(), projectID, body.EpicID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stories": suggestions})
}

// ConfirmStories handles POST /project/{projectId}/stories/confirm-stories.
func (h *AssistantHandler) ConfirmStories(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var body struct {
		EpicID  string                 `json:"epicId"`
		Stories []models.ConfirmedItem `json:"stories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if projectID == "" || body.EpicID == "" {
		writeMessage(w, http.StatusBadRequest, "projectId and epicId are required")
		return
	}

	written, err := h.service.ConfirmStories(r.Context(), projectID, body.EpicID, authorFromRequest(r), body.Stories)
	if err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, fmt.Sprintf("%d stories added to the epic", written))
}
