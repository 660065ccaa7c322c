package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"worksense/backend/models"
)

// SprintStore is the slice of sprint storage the sprint logic needs.
// *MongoSprintStore implements it; tests substitute a fake.
type SprintStore interface {
	InsertSprint(ctx context.Context, sprint *models.Sprint) error
	ListSprints(ctx context.Context, projectID string) ([]models.Sprint, error)
	GetSprint(ctx context.Context, projectID, sprintID string) (*models.Sprint, error)
	UpdateSprintFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*models.Sprint, error)
	HasOtherActiveSprint(ctx context.Context, projectID string, excluding primitive.ObjectID) (bool, error)
	DeleteSprint(ctx context.Context, id primitive.ObjectID) error
	DeleteSprintItems(ctx context.Context, sprintID string) error
}

// SprintService manages sprints. Invariants: at most one active sprint per
// project, and sprint date ranges must not overlap within a project.
type SprintService struct {
	store SprintStore
}

func NewSprintService(store SprintStore) *SprintService {
	return &SprintService{store: store}
}

// CreateSprint adds a planned sprint after checking the date-range overlap
// invariant against the project's other sprints.
func (s *SprintService) CreateSprint(ctx context.Context, projectID, name, goal string, startDate, endDate time.Time) (*models.Sprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: sprint name is required", ErrValidation)
	}
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("%w: sprint end date must be after its start date", ErrValidation)
	}

	others, err := s.store.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if DatesOverlap(startDate, endDate, other.StartDate, other.EndDate) {
			return nil, fmt.Errorf("%w: sprint dates overlap with %q", ErrValidation, other.Name)
		}
	}

	now := time.Now().UTC()
	sprint := &models.Sprint{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		Name:      name,
		Goal:      goal,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    models.SprintPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.InsertSprint(ctx, sprint); err != nil {
		return nil, err
	}
	return sprint, nil
}

// ListSprints returns all sprints of a project, oldest start first.
func (s *SprintService) ListSprints(ctx context.Context, projectID string) ([]models.Sprint, error) {
	return s.store.ListSprints(ctx, projectID)
}

// GetSprint fetches one sprint within a project.
func (s *SprintService) GetSprint(ctx context.Context, projectID, sprintID string) (*models.Sprint, error) {
	return s.store.GetSprint(ctx, projectID, sprintID)
}

// SprintPatch carries updatable sprint fields.
type SprintPatch struct {
	Name      *string    `json:"name"`
	Goal      *string    `json:"goal"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// UpdateSprint applies a partial update, re-checking the overlap invariant
// when either date changes.
func (s *SprintService) UpdateSprint(ctx context.Context, projectID, sprintID string, patch SprintPatch) (*models.Sprint, error) {
	sprint, err := s.store.GetSprint(ctx, projectID, sprintID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: sprint name must not be empty", ErrValidation)
		}
		fields["name"] = name
	}
	if patch.Goal != nil {
		fields["goal"] = *patch.Goal
	}

	start, end := sprint.StartDate, sprint.EndDate
	if patch.StartDate != nil {
		start = *patch.StartDate
		fields["startDate"] = start
	}
	if patch.EndDate != nil {
		end = *patch.EndDate
		fields["endDate"] = end
	}
	if patch.StartDate != nil || patch.EndDate != nil {
		if !end.After(start) {
			return nil, fmt.Errorf("%w: sprint end date must be after its start date", ErrValidation)
		}
		others, err := s.store.ListSprints(ctx, projectID)
		if err != nil {
			return nil, err
		}
		for _, other := range others {
			if other.ID == sprint.ID {
				continue
			}
			if DatesOverlap(start, end, other.StartDate, other.EndDate) {
				return nil, fmt.Errorf("%w: sprint dates overlap with %q", ErrValidation, other.Name)
			}
		}
	}

	return s.store.UpdateSprintFields(ctx, sprint.ID, fields)
}

// ActivateSprint marks a planned sprint active after checking no other
// sprint in the project is already active.
func (s *SprintService) ActivateSprint(ctx context.Context, projectID, sprintID string) (*models.Sprint, error) {
	sprint, err := s.store.GetSprint(ctx, projectID, sprintID)
	if err != nil {
		return nil, err
	}
	if sprint.Status == models.SprintCompleted {
		return nil, fmt.Errorf("%w: a completed sprint cannot be activated", ErrValidation)
	}

	active, err := s.store.HasOtherActiveSprint(ctx, projectID, sprint.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: another sprint is already active in this project", ErrConflict)
	}

	return s.setStatus(ctx, sprint.ID, models.SprintActive)
}

// CompleteSprint marks a sprint completed.
func (s *SprintService) CompleteSprint(ctx context.Context, projectID, sprintID string) (*models.Sprint, error) {
	sprint, err := s.store.GetSprint(ctx, projectID, sprintID)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, sprint.ID, models.SprintCompleted)
}

// DeleteSprint removes a sprint together with its board items.
func (s *SprintService) DeleteSprint(ctx context.Context, projectID, sprintID string) error {
	sprint, err := s.store.GetSprint(ctx, projectID, sprintID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSprintItems(ctx, sprintID); err != nil {
		return err
	}
	return s.store.DeleteSprint(ctx, sprint.ID)
}

func (s *SprintService) setStatus(ctx context.Context, id primitive.ObjectID, status models.SprintStatus) (*models.Sprint, error) {
	return s.store.UpdateSprintFields(ctx, id, map[string]any{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	})
}

// DatesOverlap reports whether two date ranges intersect. Touching
// boundaries (one sprint ending exactly when the next starts) do not count
// as overlap.
func DatesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// MongoSprintStore backs sprints with Mongo collections.
type MongoSprintStore struct {
	sprintsColl *mongo.Collection
	itemsColl   *mongo.Collection
}

func NewMongoSprintStore(sprintsColl, itemsColl *mongo.Collection) *MongoSprintStore {
	return &MongoSprintStore{sprintsColl: sprintsColl, itemsColl: itemsColl}
}

func (s *MongoSprintStore) InsertSprint(ctx context.Context, sprint *models.Sprint) error {
	if _, err := s.sprintsColl.InsertOne(ctx, sprint); err != nil {
		return fmt.Errorf("failed to create sprint: %w", err)
	}
	return nil
}

func (s *MongoSprintStore) ListSprints(ctx context.Context, projectID string) ([]models.Sprint, error) {
	cursor, err := s.sprintsColl.Find(ctx, bson.M{"projectId": projectID}, options.Find().SetSort(bson.M{"startDate": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sprints: %w", err)
	}
	defer cursor.Close(ctx)

	sprints := []models.Sprint{}
	if err := cursor.All(ctx, &sprints); err != nil {
		return nil, fmt.Errorf("failed to decode sprints: %w", err)
	}
	return sprints, nil
}

func (s *MongoSprintStore) GetSprint(ctx context.Context, projectID, sprintID string) (*models.Sprint, error) {
	objectID, err := primitive.ObjectIDFromHex(sprintID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sprint ID format", ErrValidation)
	}

	var sprint models.Sprint
	err = s.sprintsColl.FindOne(ctx, bson.M{"_id": objectID, "projectId": projectID}).Decode(&sprint)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: sprint %s", ErrNotFound, sprintID)
		}
		return nil, fmt.Errorf("error fetching sprint: %w", err)
	}
	return &sprint, nil
}

func (s *MongoSprintStore) UpdateSprintFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*models.Sprint, error) {
	result := s.sprintsColl.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Sprint
	if err := result.Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}
	return &updated, nil
}

func (s *MongoSprintStore) HasOtherActiveSprint(ctx context.Context, projectID string, excluding primitive.ObjectID) (bool, error) {
	count, err := s.sprintsColl.CountDocuments(ctx, bson.M{
		"projectId": projectID,
		"status":    models.SprintActive,
		"_id":       bson.M{"$ne": excluding},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check active sprints: %w", err)
	}
	return count > 0, nil
}

func (s *MongoSprintStore) DeleteSprint(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.sprintsColl.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	return nil
}

func (s *MongoSprintStore) DeleteSprintItems(ctx context.Context, sprintID string) error {
	if _, err := s.itemsColl.DeleteMany(ctx, bson.M{"sprintId": sprintID}); err != nil {
		return fmt.Errorf("failed to delete sprint items: %w", err)
	}
	return nil
}
