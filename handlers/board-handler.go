package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"worksense/backend/services"
)

// BoardHandler serves the sprint board item routes.
type BoardHandler struct {
	service *services.BoardService
}

func NewBoardHandler(service *services.BoardService) *BoardHandler {
	return &BoardHandler{service: service}
}

// AddItem handles POST /projects/{projectId}/sprints/{sprintId}/items.
func (h *BoardHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["projectId"]
	sprintID := vars["sprintId"]

	var req services.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	item, err := h.service.AddItem(r.Context(), projectID, sprintID, req)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// GetBoard handles GET /projects/{projectId}/sprints/{sprintId}/board.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	board, err := h.service.GetBoard(r.Context(), vars["projectId"], vars["sprintId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

// UpdateItem handles PATCH /projects/{projectId}/sprints/{sprintId}/items/{itemId}.
func (h *BoardHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var patch services.SprintItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	item, err := h.service.UpdateItem(r.Context(), vars["projectId"], vars["sprintId"], vars["itemId"], patch)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /projects/{projectId}/sprints/{sprintId}/items/{itemId}.
func (h *BoardHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID := vars["itemId"]

	if err := h.service.RemoveItem(r.Context(), vars["projectId"], vars["sprintId"], itemID); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Sprint item removed successfully",
		"id":      itemID,
	})
}

// Renumber handles POST /projects/{projectId}/sprints/{sprintId}/renumber.
func (h *BoardHandler) Renumber(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	board, err := h.service.Renumber(r.Context(), vars["projectId"], vars["sprintId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}
