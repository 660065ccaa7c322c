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

// BacklogService manages backlog items: epics at the top level of a project
// and stories (plus bugs, tech tasks and knowledge entries) nested under a
// parent epic.
type BacklogService struct {
	client       *mongo.Client
	itemsColl    *mongo.Collection
	projectsColl *mongo.Collection
}

func NewBacklogService(client *mongo.Client, itemsColl, projectsColl *mongo.Collection) *BacklogService {
	return &BacklogService{
		client:       client,
		itemsColl:    itemsColl,
		projectsColl: projectsColl,
	}
}

// GetProject loads the project or reports ErrNotFound.
func (s *BacklogService) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project ID format", ErrValidation)
	}

	var project models.Project
	err = s.projectsColl.FindOne(ctx, bson.M{"_id": objectID}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("error fetching project: %w", err)
	}

	return &project, nil
}

// GetEpic loads an epic belonging to the project or reports ErrNotFound.
func (s *BacklogService) GetEpic(ctx context.Context, projectID, epicID string) (*models.BacklogItem, error) {
	objectID, err := primitive.ObjectIDFromHex(epicID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid epic ID format", ErrValidation)
	}

	var epic models.BacklogItem
	err = s.itemsColl.FindOne(ctx, bson.M{"_id": objectID, "projectId": projectID, "type": models.TypeEpic}).Decode(&epic)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: epic %s", ErrNotFound, epicID)
		}
		return nil, fmt.Errorf("error fetching epic: %w", err)
	}

	return &epic, nil
}

// ExistingTitles returns the names already persisted in a scope: the project
// backlog for epics (empty parentID), or one epic's sub-items for stories.
func (s *BacklogService) ExistingTitles(ctx context.Context, projectID, parentID string) ([]string, error) {
	filter := bson.M{"projectId": projectID}
	if parentID == "" {
		filter["parentId"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["parentId"] = parentID
	}

	cursor, err := s.itemsColl.Find(ctx, filter, options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing titles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode existing titles: %w", err)
	}

	titles := make([]string, 0, len(docs))
	for _, d := range docs {
		titles = append(titles, d.Name)
	}
	return titles, nil
}

// InsertBatch writes the items in one transaction: either every item is
// persisted or none is. A unique index on (projectId, parentId, name) makes
// the store reject a concurrent confirmation that slipped past the
// application-level duplicate check; that surfaces as ErrConflict.
func (s *BacklogService) InsertBatch(ctx context.Context, items []models.BacklogItem) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(items))
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, items[i])
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.itemsColl.InsertMany(sc, docs)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: an item with the same name was created concurrently", ErrConflict)
		}
		return fmt.Errorf("failed to write backlog batch: %w", err)
	}

	return nil
}

// CreateItem persists a single backlog item created through the regular
// (non-AI) CRUD path.
func (s *BacklogService) CreateItem(ctx context.Context, item models.BacklogItem) (*models.BacklogItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if !models.ValidItemType(item.Type) {
		return nil, fmt.Errorf("%w: unknown item type %q", ErrValidation, item.Type)
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(item.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, item.Priority)
	}
	if item.Status == "" {
		item.Status = models.ItemNew
	}
	if !models.ValidItemStatus(item.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, item.Status)
	}
	if item.Size != "" && !models.ValidItemSize(item.Size) {
		return nil, fmt.Errorf("%w: unknown size %q", ErrValidation, item.Size)
	}

	if _, err := s.GetProject(ctx, item.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item.ID = primitive.NewObjectID()
	item.CreatedAt = now
	item.UpdatedAt = now

	if _, err := s.itemsColl.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: an item named %q already exists in this scope", ErrDuplicate, item.Name)
		}
		return nil, fmt.Errorf("failed to create backlog item: %w", err)
	}

	return &item, nil
}

// ListBacklog returns a project's top-level backlog items.
func (s *BacklogService) ListBacklog(ctx context.Context, projectID string) ([]models.BacklogItem, error) {
	filter := bson.M{"projectId": projectID, "parentId": bson.M{"$in": bson.A{nil, ""}}}
	return s.list(ctx, filter)
}

// ListStories returns the sub-items of one epic.
func (s *BacklogService) ListStories(ctx context.Context, projectID, epicID string) ([]models.BacklogItem, error) {
	if _, err := s.GetEpic(ctx, projectID, epicID); err != nil {
		return nil, err
	}
	return s.list(ctx, bson.M{"projectId": projectID, "parentId": epicID})
}

func (s *BacklogService) list(ctx context.Context, filter bson.M) ([]models.BacklogItem, error) {
	cursor, err := s.itemsColl.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve backlog items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.BacklogItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode backlog items: %w", err)
	}
	return items, nil
}

// GetItem fetches a single backlog item within a project.
func (s *BacklogService) GetItem(ctx context.Context, projectID, itemID string) (*models.BacklogItem, error) {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item ID format", ErrValidation)
	}

	var item models.BacklogItem
	err = s.itemsColl.FindOne(ctx, bson.M{"_id": objectID, "projectId": projectID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: backlog item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("error fetching backlog item: %w", err)
	}
	return &item, nil
}

// BacklogItemPatch carries the fields a caller may change on an item.
type BacklogItemPatch struct {
	Name               *string            `json:"name"`
	Description        *string            `json:"description"`
	Priority           *models.Priority   `json:"priority"`
	Status             *models.ItemStatus `json:"status"`
	Size               *models.ItemSize   `json:"size"`
	AssigneeID         *string            `json:"assigneeId"`
	AcceptanceCriteria *[]string          `json:"acceptanceCriteria"`
	SprintID           *string            `json:"sprintId"`
}

// UpdateItem applies a partial update and returns the updated item.
func (s *BacklogService) UpdateItem(ctx context.Context, projectID, itemID string, patch BacklogItemPatch) (*models.BacklogItem, error) {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item ID format", ErrValidation)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: item name must not be empty", ErrValidation)
		}
		set["name"] = name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
		}
		set["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		if !models.ValidItemStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
		}
		set["status"] = *patch.Status
	}
	if patch.Size != nil {
		if !models.ValidItemSize(*patch.Size) {
			return nil, fmt.Errorf("%w: unknown size %q", ErrValidation, *patch.Size)
		}
		set["size"] = *patch.Size
	}
	if patch.AssigneeID != nil {
		set["assigneeId"] = *patch.AssigneeID
	}
	if patch.AcceptanceCriteria != nil {
		set["acceptanceCriteria"] = *patch.AcceptanceCriteria
	}
	if patch.SprintID != nil {
		set["sprintId"] = *patch.SprintID
	}

	result := s.itemsColl.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "projectId": projectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.BacklogItem
	if err := result.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: backlog item %s", ErrNotFound, itemID)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: an item with that name already exists in this scope", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update backlog item: %w", err)
	}

	return &updated, nil
}

// DeleteItem removes an item and, for epics, its sub-items.
func (s *BacklogService) DeleteItem(ctx context.Context, projectID, itemID string) error {
	item, err := s.GetItem(ctx, projectID, itemID)
	if err != nil {
		return err
	}

	if item.Type == models.TypeEpic {
		if _, err := s.itemsColl.DeleteMany(ctx, bson.M{"projectId": projectID, "parentId": itemID}); err != nil {
			return fmt.Errorf("failed to delete epic sub-items: %w", err)
		}
	}

	if _, err := s.itemsColl.DeleteOne(ctx, bson.M{"_id": item.ID}); err != nil {
		return fmt.Errorf("failed to delete backlog item: %w", err)
	}
	return nil
}
