package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointsEvent records a single gamification award. The leaderboard is the
// per-project sum of these, cached in Redis.
type PointsEvent struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID string             `json:"projectId" bson:"projectId"`
	UserID    string             `json:"userId" bson:"userId"`
	Points    int64              `json:"points" bson:"points"`
	Reason    string             `json:"reason" bson:"reason"`
	ItemID    string             `json:"itemId,omitempty" bson:"itemId,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Points int64  `json:"points"`
	Rank   int    `json:"rank"`
}
