package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

type MemberRole string

const (
	RoleManager MemberRole = "manager"
	RoleMember  MemberRole = "member"
)

type Member struct {
	UserID   string     `json:"userId" bson:"userId"`
	Username string     `json:"username" bson:"username"`
	Role     MemberRole `json:"role" bson:"role"`
}

type Project struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	OwnerID     string             `json:"ownerId" bson:"ownerId"`
	Status      ProjectStatus      `json:"status" bson:"status"`
	Members     []Member           `json:"members" bson:"members"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}
