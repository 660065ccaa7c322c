package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"worksense/backend/services"
)

type SprintHandler struct {
	Service *services.SprintService
}

func NewSprintHandler(service *services.SprintService) *SprintHandler {
	return &SprintHandler{Service: service}
}

func (h *SprintHandler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	var body struct {
		Name      string    `json:"name"`
		Goal      string    `json:"goal"`
		StartDate time.Time `json:"startDate"`
		EndDate   time.Time `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	sprint, err := h.Service.CreateSprint(r.Context(), mux.Vars(r)["projectId"], body.Name, body.Goal, body.StartDate, body.EndDate)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sprint)
}

func (h *SprintHandler) ListSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := h.Service.ListSprints(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sprints)
}

func (h *SprintHandler) GetSprint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sprint, err := h.Service.GetSprint(r.Context(), vars["projectId"], vars["sprintId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sprint)
}

func (h *SprintHandler) UpdateSprint(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	var patch services.SprintPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	vars := mux.Vars(r)
	sprint, err := h.Service.UpdateSprint(r.Context(), vars["projectId"], vars["sprintId"], patch)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sprint)
}

func (h *SprintHandler) ActivateSprint(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	vars := mux.Vars(r)
	sprint, err := h.Service.ActivateSprint(r.Context(), vars["projectId"], vars["sprintId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sprint)
}

func (h *SprintHandler) CompleteSprint(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	vars := mux.Vars(r)
	sprint, err := h.Service.CompleteSprint(r.Context(), vars["projectId"], vars["sprintId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sprint)
}

func (h *SprintHandler) DeleteSprint(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	vars := mux.Vars(r)
	if err := h.Service.DeleteSprint(r.Context(), vars["projectId"], vars["sprintId"]); err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Sprint deleted successfully")
}
