package models

import "time"

type User struct {
	UserID    string    `json:"userid" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	Password  string    `json:"-" bson:"password"`
	Role      []string  `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
