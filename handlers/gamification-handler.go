package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"worksense/backend/services"
)

type GamificationHandler struct {
	Service *services.GamificationService
}

func NewGamificationHandler(service *services.GamificationService) *GamificationHandler {
	return &GamificationHandler{Service: service}
}

func (h *GamificationHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 100 {
			writeMessage(w, http.StatusBadRequest, "limit must be a number between 1 and 100")
			return
		}
		limit = parsed
	}

	entries, err := h.Service.Leaderboard(r.Context(), mux.Vars(r)["projectId"], limit)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
