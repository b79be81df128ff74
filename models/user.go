package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Email     string                 `json:"email" bson:"email"`
	Password  string                 `json:"-" bson:"password"`
	Name      string                 `json:"name" bson:"name"`
	Role      string                 `json:"role" bson:"role"`
	Phone     string                 `json:"phone,omitempty" bson:"phone,omitempty"`
	Profile   map[string]interface{} `json:"profile,omitempty" bson:"profile,omitempty"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}

// PublicUser is the part of a user other callers may see.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}

type UserFilter struct {
	Role string
}
