package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksense/backend/models"
	"worksense/backend/mq"
)

type fakeStore struct {
	projects map[string]*models.Project
	epics    map[string]*models.BacklogItem
	items    []models.BacklogItem
	failNext error
}

func (f *fakeStore) GetProject(_ context.Context, projectID string) (*models.Project, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	return p, nil
}

func (f *fakeStore) GetEpic(_ context.Context, projectID, epicID string) (*models.BacklogItem, error) {
	e, ok := f.epics[epicID]
	if !ok || e.ProjectID != projectID {
		return nil, fmt.Errorf("%w: epic %s", ErrNotFound, epicID)
	}
	return e, nil
}

func (f *fakeStore) ExistingTitles(_ context.Context, projectID, parentID string) ([]string, error) {
	var titles []string
	for _, it := range f.items {
		if it.ProjectID == projectID && it.ParentID == parentID {
			titles = append(titles, it.Name)
		}
	}
	return titles, nil
}

func (f *fakeStore) InsertBatch(_ context.Context, items []models.BacklogItem) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.items = append(f.items, items...)
	return nil
}

type fakeGenerator struct {
	raw string
	err error
}

func (g *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.raw, g.err
}

type recordingPublisher struct {
	keys     []string
	payloads []any
}

func (p *recordingPublisher) Publish(routingKey string, payload any) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: map[string]*models.Project{
			"P1": {Name: "P1", Description: "A project"},
		},
		epics: map[string]*models.BacklogItem{
			"E1": {ProjectID: "P1", Type: models.TypeEpic, Name: "E1", Description: "An epic"},
		},
	}
}

func TestGenerateEpicsFiltersExistingTitles(t *testing.T) {
	store := newFakeStore()
	store.items = []models.BacklogItem{
		{ProjectID: "P1", ParentID: "", Type: models.TypeEpic, Name: "Login"},
	}
	gen := &fakeGenerator{raw: "```json\n{\"epics\":[{\"name\":\"Login\"},{\"name\":\"Signup\",\"priority\":\"high\"}]}\n```"}
	svc := NewAssistantService(store, gen, nil)

	got, err := svc.GenerateEpics(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Signup", got[0].Name)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
	assert.Empty(t, store.items[1:], "generation must not persist anything")
}

func TestGenerateEpicsProjectNotFound(t *testing.T) {
	svc := NewAssistantService(newFakeStore(), &fakeGenerator{raw: `{"epics":[]}`}, nil)

	_, err := svc.GenerateEpics(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGenerateStoriesUsesEpicScope(t *testing.T) {
	store := newFakeStore()
	store.items = []models.BacklogItem{
		// Same title exists on the project backlog, but not under E1, so it
		// must survive the filter.
		{ProjectID: "P1", ParentID: "", Type: models.TypeEpic, Name: "As a user, I want to log in"},
	}
	gen := &fakeGenerator{raw: `{"stories":[{"name":"As a user, I want to log in","priority":"high"}]}`}
	svc := NewAssistantService(store, gen, nil)

	got, err := svc.GenerateStories(context.Background(), "P1", "E1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestConfirmEpicsSkipsEmptyAndDuplicateNames(t *testing.T) {
	store := newFakeStore()
	store.items = []models.BacklogItem{
		{ProjectID: "P1", ParentID: "", Type: models.TypeEpic, Name: "Login"},
	}
	svc := NewAssistantService(store, &fakeGenerator{}, nil)

	author := "user-7"
	written, err := svc.ConfirmEpics(context.Background(), "P1", &author, []models.ConfirmedItem{
		{Name: "Login"},
		{Name: "   "},
		{Name: "Signup", Priority: models.PriorityHigh},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.Len(t, store.items, 2)
	created := store.items[1]
	assert.Equal(t, "Signup", created.Name)
	assert.Equal(t, models.TypeEpic, created.Type)
	assert.Equal(t, models.ItemNew, created.Status)
	require.NotNil(t, created.AuthorID)
	assert.Equal(t, "user-7", *created.AuthorID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestConfirmEpicsIdempotentUnderSequentialDuplicates(t *testing.T) {
	store := newFakeStore()
	svc := NewAssistantService(store, &fakeGenerator{}, nil)

	confirmed := []models.ConfirmedItem{{Name: "Reporting"}}

	written, err := svc.ConfirmEpics(context.Background(), "P1", nil, confirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	written, err = svc.ConfirmEpics(context.Background(), "P1", nil, confirmed)
	require.NoError(t, err)
	assert.Equal(t, 0, written, "second confirmation must be skipped, not errored")

	count := 0
	for _, it := range store.items {
		if it.Name == "Reporting" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestConfirmEpicsEmptyListRejected(t *testing.T) {
	svc := NewAssistantService(newFakeStore(), &fakeGenerator{}, nil)

	_, err := svc.ConfirmEpics(context.Background(), "P1", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestConfirmEpicsRejectsUnknownEnumValues(t *testing.T) {
	svc := NewAssistantService(newFakeStore(), &fakeGenerator{}, nil)

	_, err := svc.ConfirmEpics(context.Background(), "P1", nil, []models.ConfirmedItem{
		{Name: "Reporting", Priority: "urgent"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.ConfirmEpics(context.Background(), "P1", nil, []models.ConfirmedItem{
		{Name: "Reporting", Size: "XXL"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestConfirmStoriesEndToEnd(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{raw: `{"stories":[{"name":"As a user...","priority":"high"}]}`}
	pub := &recordingPublisher{}
	svc := NewAssistantService(store, gen, pub)

	suggestions, err := svc.GenerateStories(context.Background(), "P1", "E1")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "As a user...", suggestions[0].Name)
	assert.Equal(t, models.PriorityHigh, suggestions[0].Priority)
	assert.Empty(t, store.items, "generation persists nothing")

	written, err := svc.ConfirmStories(context.Background(), "P1", "E1", nil, []models.ConfirmedItem{
		{Name: suggestions[0].Name, Priority: suggestions[0].Priority},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.Len(t, store.items, 1)
	story := store.items[0]
	assert.Equal(t, models.TypeStory, story.Type)
	assert.Equal(t, models.ItemNew, story.Status)
	assert.Equal(t, "E1", story.ParentID)
	assert.Nil(t, story.AuthorID)

	require.Len(t, pub.keys, 1)
	assert.Equal(t, mq.KeyBacklogConfirmed, pub.keys[0])
}

func TestConfirmPropagatesStoreConflict(t *testing.T) {
	store := newFakeStore()
	store.failNext = fmt.Errorf("%w: concurrent write", ErrConflict)
	svc := NewAssistantService(store, &fakeGenerator{}, nil)

	_, err := svc.ConfirmEpics(context.Background(), "P1", nil, []models.ConfirmedItem{{Name: "Reporting"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
}
