package models

import (
	"time"

	"github.com/lib/pq"
)

// Instructor links a staff user to teaching duty at a branch.
type Instructor struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	Specializations pq.StringArray `db:"specializations" json:"specializations"`
	Branch          string         `db:"branch" json:"branch"`
	Active          bool           `db:"active" json:"active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// InstructorDetail adds the linked user's display fields.
type InstructorDetail struct {
	Instructor
	FullName string `db:"full_name" json:"full_name"`
	Phone    string `db:"phone" json:"phone"`
	Email    string `db:"email" json:"email"`
}
