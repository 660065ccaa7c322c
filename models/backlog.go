package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ItemType string

const (
	TypeEpic      ItemType = "epic"
	TypeStory     ItemType = "story"
	TypeBug       ItemType = "bug"
	TypeTechTask  ItemType = "techTask"
	TypeKnowledge ItemType = "knowledge"
)

type Priority string

const (
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

type ItemStatus string

const (
	ItemNew        ItemStatus = "new"
	ItemToDo       ItemStatus = "toDo"
	ItemInProgress ItemStatus = "inProgress"
	ItemInReview   ItemStatus = "inReview"
	ItemDone       ItemStatus = "done"
)

type ItemSize string

const (
	SizeXS ItemSize = "XS"
	SizeS  ItemSize = "S"
	SizeM  ItemSize = "M"
	SizeL  ItemSize = "L"
	SizeXL ItemSize = "XL"
)

type BacklogItem struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID          string             `json:"projectId" bson:"projectId"`
	ParentID           string             `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Type               ItemType           `json:"type" bson:"type"`
	Name               string             `json:"name" bson:"name"`
	Description        string             `json:"description" bson:"description"`
	Priority           Priority           `json:"priority" bson:"priority"`
	Status             ItemStatus         `json:"status" bson:"status"`
	Size               ItemSize           `json:"size,omitempty" bson:"size,omitempty"`
	AssigneeID         string             `json:"assigneeId,omitempty" bson:"assigneeId,omitempty"`
	AuthorID           *string            `json:"authorId" bson:"authorId"`
	AcceptanceCriteria []string           `json:"acceptanceCriteria,omitempty" bson:"acceptanceCriteria,omitempty"`
	SprintID           string             `json:"sprintId,omitempty" bson:"sprintId,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ValidPriority reports whether p is one of the five allowed values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLowest, PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest:
		return true
	}
	return false
}

func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemNew, ItemToDo, ItemInProgress, ItemInReview, ItemDone:
		return true
	}
	return false
}

func ValidItemSize(s ItemSize) bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL:
		return true
	}
	return false
}

func ValidItemType(t ItemType) bool {
	switch t {
	case TypeEpic, TypeStory, TypeBug, TypeTechTask, TypeKnowledge:
		return true
	}
	return false
}
