package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"worksense/backend/middleware"
	"worksense/backend/models"
	"worksense/backend/services"
)

type ProjectHandler struct {
	Service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	project, err := h.Service.CreateProject(r.Context(), body.Name, body.Description, claims.Username)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	userID := ""
	if claims != nil && claims.Role != string(models.RoleManager) {
		userID = claims.Username
	}

	projects, err := h.Service.ListProjects(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) GetProjectByID(w http.ResponseWriter, r *http.Request) {
	project, err := h.Service.GetProjectByID(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	var patch services.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	project, err := h.Service.UpdateProject(r.Context(), mux.Vars(r)["projectId"], patch)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	if err := h.Service.DeleteProject(r.Context(), mux.Vars(r)["projectId"]); err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Project deleted successfully")
}

func (h *ProjectHandler) GetProjectMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.GetProjectMembers(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *ProjectHandler) AddMemberToProject(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	var member models.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.Service.AddMemberToProject(r.Context(), mux.Vars(r)["projectId"], member); err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Member added successfully")
}

func (h *ProjectHandler) RemoveMemberFromProject(w http.ResponseWriter, r *http.Request) {
	if err := checkRole(r, "manager"); err != nil {
		writeMessage(w, http.StatusForbidden, "Access forbidden: insufficient permissions")
		return
	}

	vars := mux.Vars(r)
	if err := h.Service.RemoveMemberFromProject(r.Context(), vars["projectId"], vars["memberId"]); err != nil {
		respondError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Member removed from project successfully")
}
