package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"worksense/backend/logging"
	"worksense/backend/models"
)

// GamificationService awards points for completed work and serves the
// per-project leaderboard. Points events are durable in Mongo; the ranking
// lives in a Redis sorted set and is rebuilt from Mongo on a cache miss.
type GamificationService struct {
	pointsColl *mongo.Collection
	rdb        *redis.Client
}

func NewGamificationService(pointsColl *mongo.Collection, rdb *redis.Client) *GamificationService {
	return &GamificationService{pointsColl: pointsColl, rdb: rdb}
}

func leaderboardKey(projectID string) string {
	return "leaderboard:" + projectID
}

// PointsForSize maps an item size to its completion award.
func PointsForSize(size models.ItemSize) int64 {
	switch size {
	case models.SizeXS:
		return 1
	case models.SizeS:
		return 2
	case models.SizeM:
		return 3
	case models.SizeL:
		return 5
	case models.SizeXL:
		return 8
	default:
		return 3
	}
}

// AwardForCompletion records a points event and bumps the Redis ranking.
func (s *GamificationService) AwardForCompletion(ctx context.Context, projectID, userID, itemID string, size models.ItemSize) error {
	if userID == "" {
		// Unassigned cards complete without an award.
		return nil
	}

	points := PointsForSize(size)
	event := models.PointsEvent{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Points:    points,
		Reason:    "item completed",
		ItemID:    itemID,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.pointsColl.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to record points event: %w", err)
	}

	if err := s.rdb.ZIncrBy(ctx, leaderboardKey(projectID), float64(points), userID).Err(); err != nil {
		// The ranking is rebuilt from Mongo on the next read.
		logging.Logger.Warnf("Event ID: LEADERBOARD_UPDATE_FAILED, Description: Failed to update leaderboard for project %s: %v", projectID, err)
	}
	return nil
}

// Leaderboard returns the top scorers of a project, highest first.
func (s *GamificationService) Leaderboard(ctx context.Context, projectID string, limit int64) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := s.readRanking(ctx, projectID, limit)
	if err == nil && len(entries) > 0 {
		return entries, nil
	}

	rebuilt, err := s.rebuildRanking(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if int64(len(rebuilt)) > limit {
		rebuilt = rebuilt[:limit]
	}
	return rebuilt, nil
}

func (s *GamificationService) readRanking(ctx context.Context, projectID string, limit int64) ([]models.LeaderboardEntry, error) {
	scores, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey(projectID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		member, _ := z.Member.(string)
		entries = append(entries, models.LeaderboardEntry{
			UserID: member,
			Points: int64(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// rebuildRanking recomputes totals from the durable points events and
// repopulates the sorted set.
func (s *GamificationService) rebuildRanking(ctx context.Context, projectID string) ([]models.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"projectId": projectID}}},
		{{Key: "$group", Value: bson.M{"_id": "$userId", "points": bson.M{"$sum": "$points"}}}},
		{{Key: "$sort", Value: bson.M{"points": -1}}},
	}

	cursor, err := s.pointsColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate points: %w", err)
	}
	defer cursor.Close(ctx)

	var totals []struct {
		UserID string `bson:"_id"`
		Points int64  `bson:"points"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, fmt.Errorf("failed to decode points totals: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for i, t := range totals {
		entries = append(entries, models.LeaderboardEntry{
			UserID: t.UserID,
			Points: t.Points,
			Rank:   i + 1,
		})
		if err := s.rdb.ZAdd(ctx, leaderboardKey(projectID), redis.Z{Score: float64(t.Points), Member: t.UserID}).Err(); err != nil {
			logging.Logger.Warnf("Event ID: LEADERBOARD_REBUILD_FAILED, Description: Failed to repopulate leaderboard for project %s: %v", projectID, err)
			break
		}
	}
	return entries, nil
}
