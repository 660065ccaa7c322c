package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID string             `json:"projectId" bson:"projectId"`
	Name      string             `json:"name" bson:"name"`
	Goal      string             `json:"goal" bson:"goal"`
	StartDate time.Time          `json:"startDate" bson:"startDate"`
	EndDate   time.Time          `json:"endDate" bson:"endDate"`
	Status    SprintStatus       `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type BoardStatus string

const (
	BoardTodo       BoardStatus = "todo"
	BoardInProgress BoardStatus = "in-progress"
	BoardReview     BoardStatus = "review"
	BoardDone       BoardStatus = "done"
)

func ValidBoardStatus(s BoardStatus) bool {
	switch s {
	case BoardTodo, BoardInProgress, BoardReview, BoardDone:
		return true
	}
	return false
}

type SprintItem struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SprintID         string             `json:"sprintId" bson:"sprintId"`
	ProjectID        string             `json:"projectId" bson:"projectId"`
	OriginalID       string             `json:"originalId" bson:"originalId"`
	OriginalType     ItemType           `json:"originalType" bson:"originalType"`
	Status           BoardStatus        `json:"status" bson:"status"`
	Order            int64              `json:"order" bson:"order"`
	SprintAssigneeID string             `json:"sprintAssigneeId,omitempty" bson:"sprintAssigneeId,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SprintBoard holds sprint items bucketed by board status, each column
// sorted by order ascending.
type SprintBoard struct {
	Todo       []SprintItem `json:"todo"`
	InProgress []SprintItem `json:"in-progress"`
	Review     []SprintItem `json:"review"`
	Done       []SprintItem `json:"done"`
}
