package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"worksense/backend/ai"
	"worksense/backend/logging"
	"worksense/backend/middleware"
	"worksense/backend/services"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// respondError maps service errors to HTTP statuses. Every error body is a
// JSON object with a message field.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, ai.ErrNotConfigured):
		writeMessage(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, ai.ErrBadResponse):
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: Unhandled error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// authorFromRequest returns the authenticated username, or nil for
// anonymous requests.
func authorFromRequest(r *http.Request) *string {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Username == "" {
		return nil
	}
	username := claims.Username
	return &username
}

// checkRole rejects requests whose verified role is not on the allow list.
func checkRole(r *http.Request, allowedRoles ...string) error {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return errors.New("role is missing in request")
	}
	for _, role := range allowedRoles {
		if role == claims.Role {
			return nil
		}
	}
	return errors.New("access forbidden: user does not have the required role")
}
