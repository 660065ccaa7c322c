package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"worksense/backend/logging"
	"worksense/backend/metrics"
	"worksense/backend/models"
	"worksense/backend/mq"
)

// OrderGap is the spacing between consecutive board items. New items land at
// the end of the todo column at the last order plus one gap, leaving room
// for manual reordering in between.
const OrderGap int64 = 1000

// BoardStore is the slice of the sprint-item storage layer the board logic
// needs. *MongoBoardStore implements it; tests substitute a fake. InsertItem
// must reject a second item with the same (sprintId, originalId) with
// ErrDuplicate, the way the unique index does.
type BoardStore interface {
	SprintExists(ctx context.Context, projectID, sprintID string) error
	BacklogItemExists(ctx context.Context, projectID, originalID string) error
	MaxTodoOrder(ctx context.Context, sprintID string) (int64, error)
	InsertItem(ctx context.Context, item models.SprintItem) error
	ListItems(ctx context.Context, sprintID string) ([]models.SprintItem, error)
	GetItem(ctx context.Context, projectID, sprintID, itemID string) (*models.SprintItem, error)
	UpdateItemFields(ctx context.Context, itemID string, fields map[string]any) (*models.SprintItem, error)
	DeleteItem(ctx context.Context, projectID, sprintID, itemID string) error
	SetItemOrder(ctx context.Context, id primitive.ObjectID, order int64, updatedAt time.Time) error
}

// BoardService manages sprint items: board cards wrapping a backlog item
// reference with sprint-local status, order and assignee.
type BoardService struct {
	store     BoardStore
	publisher EventPublisher
}

func NewBoardService(store BoardStore, publisher EventPublisher) *BoardService {
	return &BoardService{store: store, publisher: publisher}
}

// AddItemRequest is the body for adding a backlog item to a sprint.
type AddItemRequest struct {
	OriginalID       string          `json:"originalId"`
	OriginalType     models.ItemType `json:"originalType"`
	SprintAssigneeID string          `json:"sprintAssigneeId,omitempty"`
}

// AddItem places a backlog item on the sprint board. The store rejects
// adding the same backlog item to a sprint twice.
func (s *BoardService) AddItem(ctx context.Context, projectID, sprintID string, req AddItemRequest) (*models.SprintItem, error) {
	if req.OriginalID == "" {
		return nil, fmt.Errorf("%w: originalId is required", ErrValidation)
	}
	if !models.ValidItemType(req.OriginalType) {
		return nil, fmt.Errorf("%w: unknown original type %q", ErrValidation, req.OriginalType)
	}

	if err := s.store.SprintExists(ctx, projectID, sprintID); err != nil {
		return nil, err
	}
	if err := s.store.BacklogItemExists(ctx, projectID, req.OriginalID); err != nil {
		return nil, err
	}

	maxOrder, err := s.store.MaxTodoOrder(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := models.SprintItem{
		ID:               primitive.NewObjectID(),
		SprintID:         sprintID,
		ProjectID:        projectID,
		OriginalID:       req.OriginalID,
		OriginalType:     req.OriginalType,
		Status:           models.BoardTodo,
		Order:            NextOrder(maxOrder),
		SprintAssigneeID: req.SprintAssigneeID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.InsertItem(ctx, item); err != nil {
		if errors.Is(err, ErrDuplicate) {
			metrics.CountBoardOperation("add", "duplicate")
		} else {
			metrics.CountBoardOperation("add", "error")
		}
		return nil, err
	}

	metrics.CountBoardOperation("add", "success")
	return &item, nil
}

// GetBoard returns all sprint items bucketed by status, each column sorted
// by order ascending.
func (s *BoardService) GetBoard(ctx context.Context, projectID, sprintID string) (*models.SprintBoard, error) {
	if err := s.store.SprintExists(ctx, projectID, sprintID); err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	board := BucketBoard(items)
	return &board, nil
}

// SprintItemPatch carries the fields a caller may change on a board card.
// There is no transition guard: any status may be set to any other status.
type SprintItemPatch struct {
	Status           *models.BoardStatus `json:"status"`
	Order            *int64              `json:"order"`
	SprintAssigneeID *string             `json:"sprintAssigneeId"`
}

// UpdateItem applies a partial update to one sprint item. Moving a card to
// done publishes a completion event; changing the assignee publishes an
// assignment event.
func (s *BoardService) UpdateItem(ctx context.Context, projectID, sprintID, itemID string, patch SprintItemPatch) (*models.SprintItem, error) {
	previous, err := s.store.GetItem(ctx, projectID, sprintID, itemID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updatedAt": time.Now().UTC()}
	if patch.Status != nil {
		if !models.ValidBoardStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown board status %q", ErrValidation, *patch.Status)
		}
		fields["status"] = *patch.Status
	}
	if patch.Order != nil {
		fields["order"] = *patch.Order
	}
	if patch.SprintAssigneeID != nil {
		fields["sprintAssigneeId"] = *patch.SprintAssigneeID
	}

	updated, err := s.store.UpdateItemFields(ctx, itemID, fields)
	if err != nil {
		return nil, err
	}
	metrics.CountBoardOperation("update", "success")

	if s.publisher != nil {
		if patch.Status != nil && *patch.Status == models.BoardDone && previous.Status != models.BoardDone {
			s.publish(mq.KeySprintItemDone, map[string]any{
				"projectId":  projectID,
				"sprintId":   sprintID,
				"itemId":     itemID,
				"originalId": updated.OriginalID,
				"assigneeId": updated.SprintAssigneeID,
			})
		}
		if patch.SprintAssigneeID != nil && *patch.SprintAssigneeID != "" && *patch.SprintAssigneeID != previous.SprintAssigneeID {
			s.publish(mq.KeySprintItemAssigned, map[string]any{
				"projectId":  projectID,
				"sprintId":   sprintID,
				"itemId":     itemID,
				"originalId": updated.OriginalID,
				"assigneeId": *patch.SprintAssigneeID,
			})
		}
	}

	return updated, nil
}

// RemoveItem deletes a sprint item.
func (s *BoardService) RemoveItem(ctx context.Context, projectID, sprintID, itemID string) error {
	if err := s.store.DeleteItem(ctx, projectID, sprintID, itemID); err != nil {
		return err
	}
	metrics.CountBoardOperation("remove", "success")
	return nil
}

// Renumber reassigns whole-gap orders (1000, 2000, ...) column by column,
// preserving the current relative order. Used when manual reordering has
// exhausted the gaps between neighbors.
func (s *BoardService) Renumber(ctx context.Context, projectID, sprintID string) (*models.SprintBoard, error) {
	board, err := s.GetBoard(ctx, projectID, sprintID)
	if err != nil {
		return nil, err
	}

	columns := []*[]models.SprintItem{&board.Todo, &board.InProgress, &board.Review, &board.Done}
	now := time.Now().UTC()
	for _, col := range columns {
		*col = RenumberColumn(*col)
		for _, item := range *col {
			if err := s.store.SetItemOrder(ctx, item.ID, item.Order, now); err != nil {
				return nil, err
			}
		}
	}

	metrics.CountBoardOperation("renumber", "success")
	return board, nil
}

func (s *BoardService) publish(key string, payload any) {
	if err := s.publisher.Publish(key, payload); err != nil {
		logging.Logger.Errorf("Event ID: EVENT_PUBLISH_FAILED, Description: Failed to publish %s: %v", key, err)
	}
}

// NextOrder returns the order for an item appended to the todo column:
// the current maximum plus one gap, or one gap for an empty column.
func NextOrder(maxTodoOrder int64) int64 {
	return maxTodoOrder + OrderGap
}

// BucketBoard partitions items into the four fixed columns. Input sorted by
// order ascending stays sorted within each column.
func BucketBoard(items []models.SprintItem) models.SprintBoard {
	board := models.SprintBoard{
		Todo:       []models.SprintItem{},
		InProgress: []models.SprintItem{},
		Review:     []models.SprintItem{},
		Done:       []models.SprintItem{},
	}
	for _, item := range items {
		switch item.Status {
		case models.BoardInProgress:
			board.InProgress = append(board.InProgress, item)
		case models.BoardReview:
			board.Review = append(board.Review, item)
		case models.BoardDone:
			board.Done = append(board.Done, item)
		default:
			board.Todo = append(board.Todo, item)
		}
	}
	return board
}

// RenumberColumn returns the column's items sorted by their current order
// with fresh whole-gap orders assigned in sequence.
func RenumberColumn(items []models.SprintItem) []models.SprintItem {
	out := make([]models.SprintItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = int64(i+1) * OrderGap
	}
	return out
}

// MongoBoardStore backs the sprint board with Mongo collections. The unique
// index on (sprintId, originalId) is the duplicate guard.
type MongoBoardStore struct {
	itemsColl   *mongo.Collection
	sprintsColl *mongo.Collection
	backlogColl *mongo.Collection
}

func NewMongoBoardStore(itemsColl, sprintsColl, backlogColl *mongo.Collection) *MongoBoardStore {
	return &MongoBoardStore{
		itemsColl:   itemsColl,
		sprintsColl: sprintsColl,
		backlogColl: backlogColl,
	}
}

func (s *MongoBoardStore) SprintExists(ctx context.Context, projectID, sprintID string) error {
	objectID, err := primitive.ObjectIDFromHex(sprintID)
	if err != nil {
		return fmt.Errorf("%w: invalid sprint ID format", ErrValidation)
	}
	count, err := s.sprintsColl.CountDocuments(ctx, bson.M{"_id": objectID, "projectId": projectID})
	if err != nil {
		return fmt.Errorf("failed to check sprint: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: sprint %s", ErrNotFound, sprintID)
	}
	return nil
}

func (s *MongoBoardStore) BacklogItemExists(ctx context.Context, projectID, originalID string) error {
	objectID, err := primitive.ObjectIDFromHex(originalID)
	if err != nil {
		return fmt.Errorf("%w: invalid original item ID format", ErrValidation)
	}
	count, err := s.backlogColl.CountDocuments(ctx, bson.M{"_id": objectID, "projectId": projectID})
	if err != nil {
		return fmt.Errorf("failed to check backlog item: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: backlog item %s", ErrNotFound, originalID)
	}
	return nil
}

func (s *MongoBoardStore) MaxTodoOrder(ctx context.Context, sprintID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.M{"order": -1})
	var top struct {
		Order int64 `bson:"order"`
	}
	err := s.itemsColl.FindOne(ctx, bson.M{"sprintId": sprintID, "status": models.BoardTodo}, opts).Decode(&top)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read todo column: %w", err)
	}
	return top.Order, nil
}

func (s *MongoBoardStore) InsertItem(ctx context.Context, item models.SprintItem) error {
	if _, err := s.itemsColl.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: item %s is already in the sprint", ErrDuplicate, item.OriginalID)
		}
		return fmt.Errorf("failed to add item to sprint: %w", err)
	}
	return nil
}

func (s *MongoBoardStore) ListItems(ctx context.Context, sprintID string) ([]models.SprintItem, error) {
	cursor, err := s.itemsColl.Find(ctx, bson.M{"sprintId": sprintID}, options.Find().SetSort(bson.M{"order": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sprint items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.SprintItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode sprint items: %w", err)
	}
	return items, nil
}

func (s *MongoBoardStore) GetItem(ctx context.Context, projectID, sprintID, itemID string) (*models.SprintItem, error) {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item ID format", ErrValidation)
	}

	var item models.SprintItem
	err = s.itemsColl.FindOne(ctx, bson.M{"_id": objectID, "sprintId": sprintID, "projectId": projectID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: sprint item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("error fetching sprint item: %w", err)
	}
	return &item, nil
}

func (s *MongoBoardStore) UpdateItemFields(ctx context.Context, itemID string, fields map[string]any) (*models.SprintItem, error) {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item ID format", ErrValidation)
	}

	result := s.itemsColl.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.SprintItem
	if err := result.Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to update sprint item: %w", err)
	}
	return &updated, nil
}

func (s *MongoBoardStore) DeleteItem(ctx context.Context, projectID, sprintID, itemID string) error {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return fmt.Errorf("%w: invalid item ID format", ErrValidation)
	}

	result, err := s.itemsColl.DeleteOne(ctx, bson.M{"_id": objectID, "sprintId": sprintID, "projectId": projectID})
	if err != nil {
		return fmt.Errorf("failed to delete sprint item: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: sprint item %s", ErrNotFound, itemID)
	}
	return nil
}

func (s *MongoBoardStore) SetItemOrder(ctx context.Context, id primitive.ObjectID, order int64, updatedAt time.Time) error {
	_, err := s.itemsColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"order": order, "updatedAt": updatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to renumber sprint item: %w", err)
	}
	return nil
}
