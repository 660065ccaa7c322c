package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksense/backend/ai"
	"worksense/backend/models"
	"worksense/backend/services"
)

type stubStore struct {
	projects map[string]*models.Project
	epics    map[string]*models.BacklogItem
	titles   []string
	inserted []models.BacklogItem
}

func (s *stubStore) GetProject(_ context.Context, projectID string) (*models.Project, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: project %s", services.ErrNotFound, projectID)
	}
	return p, nil
}

func (s *stubStore) GetEpic(_ context.Context, _, epicID string) (*models.BacklogItem, error) {
	e, ok := s.epics[epicID]
	if !ok {
		return nil, fmt.Errorf("%w: epic %s", services.ErrNotFound, epicID)
	}
	return e, nil
}

func (s *stubStore) ExistingTitles(_ context.Context, _, _ string) ([]string, error) {
	titles := make([]string, len(s.titles))
	copy(titles, s.titles)
	for _, item := range s.inserted {
		titles = append(titles, item.Name)
	}
	return titles, nil
}

func (s *stubStore) InsertBatch(_ context.Context, items []models.BacklogItem) error {
	s.inserted = append(s.inserted, items...)
	return nil
}

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.response, g.err
}

func newTestRouter(store *stubStore, generator *stubGenerator) *mux.Router {
	handler := NewAssistantHandler(services.NewAssistantService(store, generator, nil))

	r := mux.NewRouter()
	r.HandleFunc("/project/{projectId}/generate-epics", handler.GenerateEpics).Methods("GET")
	r.HandleFunc("/project/{projectId}/confirm-epics", handler.ConfirmEpics).Methods("POST")
	r.HandleFunc("/project/{projectId}/stories/generate-stories", handler.GenerateStories).Methods("POST")
	r.HandleFunc("/project/{projectId}/stories/confirm-stories", handler.ConfirmStories).Methods("POST")
	return r
}

func TestGenerateEpicsStripsFencesAndDedupes(t *testing.T) {
	store := &stubStore{
		projects: map[string]*models.Project{"p1": {Name: "Worksense", Description: "PM tool"}},
		titles:   []string{"User management"},
	}
	generator := &stubGenerator{
		response: "```json\n{\"epics\": [{\"name\": \"User management\", \"priority\": \"high\"}, {\"name\": \"Reporting\", \"priority\": \"URGENT\"}]}\n```",
	}

	req := httptest.NewRequest(http.MethodGet, "/project/p1/generate-epics", nil)
	rec := httptest.NewRecorder()
	newTestRouter(store, generator).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Reporting")
	assert.NotContains(t, body, "User management")
	assert.Contains(t, body, `"priority":"medium"`)
	assert.Empty(t, store.inserted, "generation must not write")
}

func TestGenerateEpicsProjectNotFound(t *testing.T) {
	store := &stubStore{projects: map[string]*models.Project{}}

	req := httptest.NewRequest(http.MethodGet, "/project/missing/generate-epics", nil)
	rec := httptest.NewRecorder()
	newTestRouter(store, &stubGenerator{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestGenerateEpicsGeneratorDown(t *testing.T) {
	store := &stubStore{projects: map[string]*models.Project{"p1": {Name: "Worksense"}}}
	generator := &stubGenerator{err: fmt.Errorf("%w: upstream timeout", ai.ErrUnavailable)}

	req := httptest.NewRequest(http.MethodGet, "/project/p1/generate-epics", nil)
	rec := httptest.NewRecorder()
	newTestRouter(store, generator).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestConfirmEpicsPersistsBatch(t *testing.T) {
	store := &stubStore{projects: map[string]*models.Project{"p1": {Name: "Worksense"}}}

	payload := `{"epics": [{"name": "Reporting", "priority": "high"}, {"name": "Billing"}]}`
	req := httptest.NewRequest(http.MethodPost, "/project/p1/confirm-epics", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	newTestRouter(store, &stubGenerator{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 epics added to the backlog")
	require.Len(t, store.inserted, 2)
	assert.Equal(t, models.TypeEpic, store.inserted[0].Type)
	assert.Equal(t, models.ItemNew, store.inserted[0].Status)
	assert.Nil(t, store.inserted[0].AuthorID)
}

func TestConfirmEpicsEmptyListRejected(t *testing.T) {
	store := &stubStore{projects: map[string]*models.Project{"p1": {Name: "Worksense"}}}

	req := httptest.NewRequest(http.MethodPost, "/project/p1/confirm-epics", strings.NewReader(`{"epics": []}`))
	rec := httptest.NewRecorder()
	newTestRouter(store, &stubGenerator{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmStoriesRequiresEpic(t *testing.T) {
	store := &stubStore{
		projects: map[string]*models.Project{"p1": {Name: "Worksense"}},
		epics:    map[string]*models.BacklogItem{},
	}

	payload := `{"epicId": "missing", "stories": [{"name": "As a user I log in"}]}`
	req := httptest.NewRequest(http.MethodPost, "/project/p1/stories/confirm-stories", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	newTestRouter(store, &stubGenerator{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmStoriesScopedToEpic(t *testing.T) {
	store := &stubStore{
		projects: map[string]*models.Project{"p1": {Name: "Worksense"}},
		epics:    map[string]*models.BacklogItem{"e1": {Name: "User management", Type: models.TypeEpic}},
	}

	payload := `{"epicId": "e1", "stories": [{"name": "As a user I log in", "priority": "high"}]}`
	req := httptest.NewRequest(http.MethodPost, "/project/p1/stories/confirm-stories", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	newTestRouter(store, &stubGenerator{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, models.TypeStory, store.inserted[0].Type)
	assert.Equal(t, "e1", store.inserted[0].ParentID)
}
