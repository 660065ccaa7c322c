package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"worksense/backend/models"
)

type fakeSprintStore struct {
	sprints []models.Sprint
	items   map[string]int
}

func (f *fakeSprintStore) InsertSprint(_ context.Context, sprint *models.Sprint) error {
	f.sprints = append(f.sprints, *sprint)
	return nil
}

func (f *fakeSprintStore) ListSprints(_ context.Context, projectID string) ([]models.Sprint, error) {
	var sprints []models.Sprint
	for _, s := range f.sprints {
		if s.ProjectID == projectID {
			sprints = append(sprints, s)
		}
	}
	return sprints, nil
}

func (f *fakeSprintStore) GetSprint(_ context.Context, projectID, sprintID string) (*models.Sprint, error) {
	for _, s := range f.sprints {
		if s.ID.Hex() == sprintID && s.ProjectID == projectID {
			found := s
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: sprint %s", ErrNotFound, sprintID)
}

func (f *fakeSprintStore) UpdateSprintFields(_ context.Context, id primitive.ObjectID, fields map[string]any) (*models.Sprint, error) {
	for i := range f.sprints {
		if f.sprints[i].ID != id {
			continue
		}
		if v, ok := fields["name"]; ok {
			f.sprints[i].Name = v.(string)
		}
		if v, ok := fields["goal"]; ok {
			f.sprints[i].Goal = v.(string)
		}
		if v, ok := fields["startDate"]; ok {
			f.sprints[i].StartDate = v.(time.Time)
		}
		if v, ok := fields["endDate"]; ok {
			f.sprints[i].EndDate = v.(time.Time)
		}
		if v, ok := fields["status"]; ok {
			f.sprints[i].Status = v.(models.SprintStatus)
		}
		if v, ok := fields["updatedAt"]; ok {
			f.sprints[i].UpdatedAt = v.(time.Time)
		}
		updated := f.sprints[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("%w: sprint %s", ErrNotFound, id.Hex())
}

func (f *fakeSprintStore) HasOtherActiveSprint(_ context.Context, projectID string, excluding primitive.ObjectID) (bool, error) {
	for _, s := range f.sprints {
		if s.ProjectID == projectID && s.Status == models.SprintActive && s.ID != excluding {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSprintStore) DeleteSprint(_ context.Context, id primitive.ObjectID) error {
	for i, s := range f.sprints {
		if s.ID == id {
			f.sprints = append(f.sprints[:i], f.sprints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: sprint %s", ErrNotFound, id.Hex())
}

func (f *fakeSprintStore) DeleteSprintItems(_ context.Context, sprintID string) error {
	if f.items != nil {
		delete(f.items, sprintID)
	}
	return nil
}

func sprintDay(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func seedSprint(store *fakeSprintStore, projectID, name string, status models.SprintStatus, start, end time.Time) models.Sprint {
	sprint := models.Sprint{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	store.sprints = append(store.sprints, sprint)
	return sprint
}

func TestActivateSprintRejectsSecondActive(t *testing.T) {
	store := &fakeSprintStore{}
	seedSprint(store, "p1", "Sprint 1", models.SprintActive, sprintDay(1), sprintDay(14))
	planned := seedSprint(store, "p1", "Sprint 2", models.SprintPlanned, sprintDay(15), sprintDay(28))
	service := NewSprintService(store)

	_, err := service.ActivateSprint(context.Background(), "p1", planned.ID.Hex())

	require.ErrorIs(t, err, ErrConflict)
	got, getErr := store.GetSprint(context.Background(), "p1", planned.ID.Hex())
	require.NoError(t, getErr)
	assert.Equal(t, models.SprintPlanned, got.Status, "rejected activation must not change status")
}

func TestActivateSprintSucceedsWhenNoneActive(t *testing.T) {
	store := &fakeSprintStore{}
	seedSprint(store, "p1", "Sprint 1", models.SprintCompleted, sprintDay(1), sprintDay(14))
	planned := seedSprint(store, "p1", "Sprint 2", models.SprintPlanned, sprintDay(15), sprintDay(28))
	service := NewSprintService(store)

	activated, err := service.ActivateSprint(context.Background(), "p1", planned.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, models.SprintActive, activated.Status)
}

func TestActivateSprintIgnoresOtherProjects(t *testing.T) {
	store := &fakeSprintStore{}
	seedSprint(store, "p2", "Other project sprint", models.SprintActive, sprintDay(1), sprintDay(14))
	planned := seedSprint(store, "p1", "Sprint 1", models.SprintPlanned, sprintDay(1), sprintDay(14))
	service := NewSprintService(store)

	_, err := service.ActivateSprint(context.Background(), "p1", planned.ID.Hex())
	assert.NoError(t, err)
}

func TestActivateCompletedSprintRejected(t *testing.T) {
	store := &fakeSprintStore{}
	completed := seedSprint(store, "p1", "Sprint 1", models.SprintCompleted, sprintDay(1), sprintDay(14))
	service := NewSprintService(store)

	_, err := service.ActivateSprint(context.Background(), "p1", completed.ID.Hex())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateSprintOverlapRejected(t *testing.T) {
	store := &fakeSprintStore{}
	seedSprint(store, "p1", "Sprint 1", models.SprintPlanned, sprintDay(1), sprintDay(14))
	service := NewSprintService(store)

	_, err := service.CreateSprint(context.Background(), "p1", "Sprint 2", "", sprintDay(10), sprintDay(20))

	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, store.sprints, 1)
}

func TestCreateSprintTouchingBoundariesAllowed(t *testing.T) {
	store := &fakeSprintStore{}
	seedSprint(store, "p1", "Sprint 1", models.SprintPlanned, sprintDay(1), sprintDay(14))
	service := NewSprintService(store)

	sprint, err := service.CreateSprint(context.Background(), "p1", "Sprint 2", "", sprintDay(14), sprintDay(28))

	require.NoError(t, err)
	assert.Equal(t, models.SprintPlanned, sprint.Status)
	assert.Len(t, store.sprints, 2)
}

func TestDatesOverlap(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"disjoint", day(1), day(5), day(10), day(14), false},
		{"contained", day(1), day(14), day(3), day(5), true},
		{"partial", day(1), day(10), day(5), day(14), true},
		{"touching boundaries", day(1), day(5), day(5), day(10), false},
		{"identical", day(1), day(5), day(1), day(5), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DatesOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, DatesOverlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "overlap must be symmetric")
		})
	}
}
