package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"worksense/backend/middleware"
	"worksense/backend/models"
	"worksense/backend/services"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.Service.Register(r.Context(), user)
	if err != nil {
		respondError(w, err)
		return
	}

	created.Password = ""
	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	token, user, err := h.Service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		respondError(w, err)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}

	user, err := h.Service.GetByUsername(r.Context(), claims.Username)
	if err != nil {
		respondError(w, err)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}
