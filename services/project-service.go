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

	"worksense/backend/cache"
	"worksense/backend/models"
)

// ProjectService manages projects and their member lists.
type ProjectService struct {
	projectsColl *mongo.Collection
	itemsColl    *mongo.Collection
	sprintsColl  *mongo.Collection
	projectCache *cache.ProjectCache
}

func NewProjectService(projectsColl, itemsColl, sprintsColl *mongo.Collection, projectCache *cache.ProjectCache) *ProjectService {
	return &ProjectService{
		projectsColl: projectsColl,
		itemsColl:    itemsColl,
		sprintsColl:  sprintsColl,
		projectCache: projectCache,
	}
}

// CreateProject creates a new project owned by the given user. The unique
// index on name rejects duplicate project names.
func (s *ProjectService) CreateProject(ctx context.Context, name, description, ownerID string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Status:      models.ProjectActive,
		Members:     []models.Member{{UserID: ownerID, Role: models.RoleManager}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.projectsColl.InsertOne(ctx, project); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: a project named %q already exists", ErrDuplicate, name)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProjectByID returns a project, preferring the cache.
func (s *ProjectService) GetProjectByID(ctx context.Context, projectID string) (*models.Project, error) {
	if s.projectCache != nil {
		if cached, ok := s.projectCache.Get(ctx, projectID); ok {
			return cached, nil
		}
	}

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

	if s.projectCache != nil {
		s.projectCache.Set(ctx, &project)
	}
	return &project, nil
}

// ListProjects returns projects the given user belongs to, or every project
// when userID is empty.
func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	filter := bson.M{}
	if userID != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"ownerId": userID},
			bson.M{"members.userId": userID},
		}}
	}

	cursor, err := s.projectsColl.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

// ProjectPatch carries updatable project fields.
type ProjectPatch struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Status      *models.ProjectStatus `json:"status"`
}

// UpdateProject applies a partial update and invalidates the cache entry.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID string, patch ProjectPatch) (*models.Project, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project ID format", ErrValidation)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name must not be empty", ErrValidation)
		}
		set["name"] = name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		if *patch.Status != models.ProjectActive && *patch.Status != models.ProjectArchived {
			return nil, fmt.Errorf("%w: unknown project status %q", ErrValidation, *patch.Status)
		}
		set["status"] = *patch.Status
	}

	result := s.projectsColl.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Project
	if err := result.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: a project with that name already exists", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if s.projectCache != nil {
		s.projectCache.Invalidate(ctx, projectID)
	}
	return &updated, nil
}

// DeleteProject removes the project and everything under it.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID string) error {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return fmt.Errorf("%w: invalid project ID format", ErrValidation)
	}

	result, err := s.projectsColl.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}

	if _, err := s.itemsColl.DeleteMany(ctx, bson.M{"projectId": projectID}); err != nil {
		return fmt.Errorf("failed to delete project backlog: %w", err)
	}
	if _, err := s.sprintsColl.DeleteMany(ctx, bson.M{"projectId": projectID}); err != nil {
		return fmt.Errorf("failed to delete project sprints: %w", err)
	}

	if s.projectCache != nil {
		s.projectCache.Invalidate(ctx, projectID)
	}
	return nil
}

// GetProjectMembers returns the member list of one project.
func (s *ProjectService) GetProjectMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return project.Members, nil
}

// AddMemberToProject appends a member unless they are already on the list.
func (s *ProjectService) AddMemberToProject(ctx context.Context, projectID string, member models.Member) error {
	if member.UserID == "" {
		return fmt.Errorf("%w: member userId is required", ErrValidation)
	}
	if member.Role == "" {
		member.Role = models.RoleMember
	}
	if member.Role != models.RoleManager && member.Role != models.RoleMember {
		return fmt.Errorf("%w: unknown member role %q", ErrValidation, member.Role)
	}

	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	for _, m := range project.Members {
		if m.UserID == member.UserID {
			return fmt.Errorf("%w: user %s is already a member", ErrDuplicate, member.UserID)
		}
	}

	update := bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := s.projectsColl.UpdateOne(ctx, bson.M{"_id": project.ID}, update); err != nil {
		return fmt.Errorf("failed to add member to project: %w", err)
	}

	if s.projectCache != nil {
		s.projectCache.Invalidate(ctx, projectID)
	}
	return nil
}

// RemoveMemberFromProject pulls a member off the project.
func (s *ProjectService) RemoveMemberFromProject(ctx context.Context, projectID, memberID string) error {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID == memberID {
		return fmt.Errorf("%w: the project owner cannot be removed", ErrValidation)
	}

	update := bson.M{
		"$pull": bson.M{"members": bson.M{"userId": memberID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := s.projectsColl.UpdateOne(ctx, bson.M{"_id": project.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to remove member from project: %w", err)
	}
	if result.ModifiedCount == 0 {
		return fmt.Errorf("%w: member not found in project or already removed", ErrNotFound)
	}

	if s.projectCache != nil {
		s.projectCache.Invalidate(ctx, projectID)
	}
	return nil
}
