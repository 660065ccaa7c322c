package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"worksense/backend/ai"
	"worksense/backend/logging"
	"worksense/backend/metrics"
	"worksense/backend/models"
	"worksense/backend/mq"
)

// BacklogStore is the slice of the backlog layer the AI pipeline needs.
// *BacklogService implements it; tests substitute a fake.
type BacklogStore interface {
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	GetEpic(ctx context.Context, projectID, epicID string) (*models.BacklogItem, error)
	ExistingTitles(ctx context.Context, projectID, parentID string) ([]string, error)
	InsertBatch(ctx context.Context, items []models.BacklogItem) error
}

// Generator produces raw suggestion text from a prompt.
type Generator interface {
	Generate(ctx context.Context, kind, prompt string) (string, error)
}

// EventPublisher publishes domain events. May be nil when the broker is not
// configured; confirmation then simply skips the event.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// AssistantService orchestrates the AI backlog pipeline: generation returns
// deduplicated suggestions without persisting anything; confirmation
// persists a caller-approved subset as one atomic batch.
type AssistantService struct {
	store     BacklogStore
	generator Generator
	publisher EventPublisher
}

func NewAssistantService(store BacklogStore, generator Generator, publisher EventPublisher) *AssistantService {
	return &AssistantService{store: store, generator: generator, publisher: publisher}
}

// GenerateEpics proposes new epics for the project backlog. No writes occur.
func (s *AssistantService) GenerateEpics(ctx context.Context, projectID string) ([]models.AiSuggestion, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	prompt := ai.BuildEpicPrompt(project.Name, project.Description)
	raw, err := s.generator.Generate(ctx, ai.KeyEpics, prompt)
	if err != nil {
		return nil, err
	}

	suggestions, err := ai.ParseSuggestions(raw, ai.KeyEpics)
	if err != nil {
		return nil, err
	}
	metrics.CountSuggestions(ai.KeyEpics, "parsed", len(suggestions))

	existing, err := s.store.ExistingTitles(ctx, projectID, "")
	if err != nil {
		return nil, err
	}

	filtered := ai.FilterExisting(suggestions, existing)
	metrics.CountSuggestions(ai.KeyEpics, "deduplicated", len(filtered))
	return filtered, nil
}

// GenerateStories proposes stories for one epic. No writes occur.
func (s *AssistantService) GenerateStories(ctx context.Context, projectID, epicID string) ([]models.AiSuggestion, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	epic, err := s.store.GetEpic(ctx, projectID, epicID)
	if err != nil {
		return nil, err
	}

	prompt := ai.BuildStoryPrompt(project.Name, project.Description, epic.Name, epic.Description)
	raw, err := s.generator.Generate(ctx, ai.KeyStories, prompt)
	if err != nil {
		return nil, err
	}

	suggestions, err := ai.ParseSuggestions(raw, ai.KeyStories)
	if err != nil {
		return nil, err
	}
	metrics.CountSuggestions(ai.KeyStories, "parsed", len(suggestions))

	existing, err := s.store.ExistingTitles(ctx, projectID, epicID)
	if err != nil {
		return nil, err
	}

	filtered := ai.FilterExisting(suggestions, existing)
	metrics.CountSuggestions(ai.KeyStories, "deduplicated", len(filtered))
	return filtered, nil
}

// ConfirmEpics persists approved epic suggestions. Returns how many items
// were written; duplicates and empty names are skipped silently.
func (s *AssistantService) ConfirmEpics(ctx context.Context, projectID string, author *string, confirmed []models.ConfirmedItem) (int, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	return s.confirm(ctx, projectID, "", models.TypeEpic, author, confirmed)
}

// ConfirmStories persists approved story suggestions under one epic.
func (s *AssistantService) ConfirmStories(ctx context.Context, projectID, epicID string, author *string, confirmed []models.ConfirmedItem) (int, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	if _, err := s.store.GetEpic(ctx, projectID, epicID); err != nil {
		return 0, err
	}
	return s.confirm(ctx, projectID, epicID, models.TypeStory, author, confirmed)
}

func (s *AssistantService) confirm(ctx context.Context, projectID, parentID string, itemType models.ItemType, author *string, confirmed []models.ConfirmedItem) (int, error) {
	if len(confirmed) == 0 {
		return 0, fmt.Errorf("%w: confirmation list must not be empty", ErrValidation)
	}

	for _, c := range confirmed {
		if c.Priority != "" && !models.ValidPriority(c.Priority) {
			return 0, fmt.Errorf("%w: unknown priority %q", ErrValidation, c.Priority)
		}
		if c.Size != "" && !models.ValidItemSize(c.Size) {
			return 0, fmt.Errorf("%w: unknown size %q", ErrValidation, c.Size)
		}
	}

	// Re-fetch titles to narrow the window since generation. The unique
	// index on (projectId, parentId, name) still has the final word.
	titles, err := s.store.ExistingTitles(ctx, projectID, parentID)
	if err != nil {
		return 0, err
	}
	existing := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		existing[t] = struct{}{}
	}

	now := time.Now().UTC()
	items := make([]models.BacklogItem, 0, len(confirmed))
	for _, c := range confirmed {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, dup := existing[name]; dup {
			continue
		}
		existing[name] = struct{}{}

		priority := c.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}

		item := models.BacklogItem{
			ProjectID:          projectID,
			ParentID:           parentID,
			Type:               itemType,
			Name:               name,
			Priority:           priority,
			Status:             models.ItemNew,
			Size:               c.Size,
			AssigneeID:         c.AssigneeID,
			AuthorID:           author,
			AcceptanceCriteria: c.AcceptanceCriteria,
			SprintID:           c.SprintID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if c.Description != nil {
			item.Description = *c.Description
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return 0, nil
	}

	if err := s.store.InsertBatch(ctx, items); err != nil {
		return 0, err
	}
	metrics.CountSuggestions(string(itemType)+"s", "confirmed", len(items))

	if s.publisher != nil {
		event := map[string]any{
			"projectId": projectID,
			"parentId":  parentID,
			"itemType":  itemType,
			"count":     len(items),
			"author":    author,
		}
		if err := s.publisher.Publish(mq.KeyBacklogConfirmed, event); err != nil {
			logging.Logger.Errorf("Event ID: EVENT_PUBLISH_FAILED, Description: Failed to publish %s: %v", mq.KeyBacklogConfirmed, err)
		}
	}

	return len(items), nil
}
