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

type fakeBoardStore struct {
	sprints map[string]bool
	backlog map[string]bool
	items   []models.SprintItem
}

func newFakeBoardStore() *fakeBoardStore {
	return &fakeBoardStore{
		sprints: map[string]bool{},
		backlog: map[string]bool{},
	}
}

func (f *fakeBoardStore) SprintExists(_ context.Context, projectID, sprintID string) error {
	if !f.sprints[projectID+"/"+sprintID] {
		return fmt.Errorf("%w: sprint %s", ErrNotFound, sprintID)
	}
	return nil
}

func (f *fakeBoardStore) BacklogItemExists(_ context.Context, projectID, originalID string) error {
	if !f.backlog[projectID+"/"+originalID] {
		return fmt.Errorf("%w: backlog item %s", ErrNotFound, originalID)
	}
	return nil
}

func (f *fakeBoardStore) MaxTodoOrder(_ context.Context, sprintID string) (int64, error) {
	var max int64
	for _, item := range f.items {
		if item.SprintID == sprintID && item.Status == models.BoardTodo && item.Order > max {
			max = item.Order
		}
	}
	return max, nil
}

// InsertItem mirrors the unique index on (sprintId, originalId).
func (f *fakeBoardStore) InsertItem(_ context.Context, item models.SprintItem) error {
	for _, existing := range f.items {
		if existing.SprintID == item.SprintID && existing.OriginalID == item.OriginalID {
			return fmt.Errorf("%w: item %s is already in the sprint", ErrDuplicate, item.OriginalID)
		}
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeBoardStore) ListItems(_ context.Context, sprintID string) ([]models.SprintItem, error) {
	var items []models.SprintItem
	for _, item := range f.items {
		if item.SprintID == sprintID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeBoardStore) GetItem(_ context.Context, projectID, sprintID, itemID string) (*models.SprintItem, error) {
	for _, item := range f.items {
		if item.ID.Hex() == itemID && item.ProjectID == projectID && item.SprintID == sprintID {
			found := item
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: sprint item %s", ErrNotFound, itemID)
}

func (f *fakeBoardStore) UpdateItemFields(_ context.Context, itemID string, fields map[string]any) (*models.SprintItem, error) {
	for i := range f.items {
		if f.items[i].ID.Hex() != itemID {
			continue
		}
		if v, ok := fields["status"]; ok {
			f.items[i].Status = v.(models.BoardStatus)
		}
		if v, ok := fields["order"]; ok {
			f.items[i].Order = v.(int64)
		}
		if v, ok := fields["sprintAssigneeId"]; ok {
			f.items[i].SprintAssigneeID = v.(string)
		}
		if v, ok := fields["updatedAt"]; ok {
			f.items[i].UpdatedAt = v.(time.Time)
		}
		updated := f.items[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("%w: sprint item %s", ErrNotFound, itemID)
}

func (f *fakeBoardStore) DeleteItem(_ context.Context, projectID, sprintID, itemID string) error {
	for i, item := range f.items {
		if item.ID.Hex() == itemID && item.ProjectID == projectID && item.SprintID == sprintID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: sprint item %s", ErrNotFound, itemID)
}

func (f *fakeBoardStore) SetItemOrder(_ context.Context, id primitive.ObjectID, order int64, updatedAt time.Time) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Order = order
			f.items[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return fmt.Errorf("%w: sprint item %s", ErrNotFound, id.Hex())
}

func newBoardFixture() (*BoardService, *fakeBoardStore) {
	store := newFakeBoardStore()
	store.sprints["p1/s1"] = true
	for _, id := range []string{"b1", "b2", "b3"} {
		store.backlog["p1/"+id] = true
	}
	return NewBoardService(store, nil), store
}

func TestAddItemDuplicateOriginalRejected(t *testing.T) {
	service, store := newBoardFixture()
	ctx := context.Background()

	req := AddItemRequest{OriginalID: "b1", OriginalType: models.TypeStory}
	_, err := service.AddItem(ctx, "p1", "s1", req)
	require.NoError(t, err)

	_, err = service.AddItem(ctx, "p1", "s1", req)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, store.items, 1, "second attempt must not add a sprint item")
}

func TestAddItemSequenceOrders(t *testing.T) {
	service, store := newBoardFixture()
	ctx := context.Background()

	var orders []int64
	for _, id := range []string{"b1", "b2", "b3"} {
		item, err := service.AddItem(ctx, "p1", "s1", AddItemRequest{OriginalID: id, OriginalType: models.TypeStory})
		require.NoError(t, err)
		orders = append(orders, item.Order)
	}

	assert.Equal(t, []int64{1000, 2000, 3000}, orders)
	assert.Len(t, store.items, 3)
}

func TestAddItemSprintNotFound(t *testing.T) {
	service, _ := newBoardFixture()

	_, err := service.AddItem(context.Background(), "p1", "missing", AddItemRequest{OriginalID: "b1", OriginalType: models.TypeStory})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemUnknownBacklogItem(t *testing.T) {
	service, _ := newBoardFixture()

	_, err := service.AddItem(context.Background(), "p1", "s1", AddItemRequest{OriginalID: "nope", OriginalType: models.TypeStory})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBoardBucketsFakeItems(t *testing.T) {
	service, store := newBoardFixture()
	ctx := context.Background()

	for _, id := range []string{"b1", "b2"} {
		_, err := service.AddItem(ctx, "p1", "s1", AddItemRequest{OriginalID: id, OriginalType: models.TypeStory})
		require.NoError(t, err)
	}
	done := models.BoardDone
	_, err := service.UpdateItem(ctx, "p1", "s1", store.items[0].ID.Hex(), SprintItemPatch{Status: &done})
	require.NoError(t, err)

	board, err := service.GetBoard(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Len(t, board.Todo, 1)
	assert.Len(t, board.Done, 1)
}

func TestNextOrderSequence(t *testing.T) {
	var max int64
	var got []int64
	for i := 0; i < 3; i++ {
		next := NextOrder(max)
		got = append(got, next)
		max = next
	}
	assert.Equal(t, []int64{1000, 2000, 3000}, got)
}

func TestBucketBoardPartition(t *testing.T) {
	items := []models.SprintItem{
		{OriginalID: "a", Status: models.BoardTodo, Order: 1000},
		{OriginalID: "b", Status: models.BoardDone, Order: 1000},
		{OriginalID: "c", Status: models.BoardTodo, Order: 2000},
		{OriginalID: "d", Status: models.BoardInProgress, Order: 1000},
		{OriginalID: "e", Status: models.BoardReview, Order: 1000},
		{OriginalID: "f", Status: models.BoardDone, Order: 2000},
	}

	board := BucketBoard(items)

	total := len(board.Todo) + len(board.InProgress) + len(board.Review) + len(board.Done)
	assert.Equal(t, len(items), total, "no loss or duplication")

	assert.Equal(t, []string{"a", "c"}, originalIDs(board.Todo))
	assert.Equal(t, []string{"d"}, originalIDs(board.InProgress))
	assert.Equal(t, []string{"e"}, originalIDs(board.Review))
	assert.Equal(t, []string{"b", "f"}, originalIDs(board.Done))
}

func TestBucketBoardEmptyColumnsAreNonNil(t *testing.T) {
	board := BucketBoard(nil)
	require.NotNil(t, board.Todo)
	require.NotNil(t, board.InProgress)
	require.NotNil(t, board.Review)
	require.NotNil(t, board.Done)
}

func TestRenumberColumn(t *testing.T) {
	items := []models.SprintItem{
		{OriginalID: "c", Order: 1502},
		{OriginalID: "a", Order: 17},
		{OriginalID: "b", Order: 1500},
	}

	got := RenumberColumn(items)

	assert.Equal(t, []string{"a", "b", "c"}, originalIDs(got))
	assert.Equal(t, int64(1000), got[0].Order)
	assert.Equal(t, int64(2000), got[1].Order)
	assert.Equal(t, int64(3000), got[2].Order)

	// input untouched
	assert.Equal(t, int64(1502), items[0].Order)
}

func TestRenumberColumnStableForTies(t *testing.T) {
	items := []models.SprintItem{
		{OriginalID: "x", Order: 1000},
		{OriginalID: "y", Order: 1000},
	}

	got := RenumberColumn(items)
	assert.Equal(t, []string{"x", "y"}, originalIDs(got))
}

func originalIDs(items []models.SprintItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.OriginalID)
	}
	return ids
}
