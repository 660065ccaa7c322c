package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"worksense/backend/models"
	"worksense/backend/services"
)

type BacklogHandler struct {
	Service *services.BacklogService
}

func NewBacklogHandler(service *services.BacklogService) *BacklogHandler {
	return &BacklogHandler{Service: service}
}

func (h *BacklogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.BacklogItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	item.ProjectID = mux.Vars(r)["projectId"]
	item.AuthorID = authorFromRequest(r)

	created, err := h.Service.CreateItem(r.Context(), item)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *BacklogHandler) ListBacklog(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListBacklog(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *BacklogHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	items, err := h.Service.ListStories(r.Context(), vars["projectId"], vars["epicId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *BacklogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	item, err := h.Service.GetItem(r.Context(), vars["projectId"], vars["itemId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *BacklogHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch services.BacklogItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	vars := mux.Vars(r)
	updated, err := h.Service.UpdateItem(r.Context(), vars["projectId"], vars["itemId"], patch)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *BacklogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.Service.DeleteItem(r.Context(), vars["projectId"], vars["itemId"]); err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Backlog item deleted successfully")
}
