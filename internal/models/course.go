package models

import "time"

// Course is an offered licence programme. The fee is fixed by course type
// at creation time; students snapshot it at enrollment.
type Course struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Type            string    `db:"type" json:"type"`
	DurationWeeks   int       `db:"duration_weeks" json:"duration_weeks"`
	NumberOfLessons int       `db:"number_of_lessons" json:"number_of_lessons"`
	Fee             int64     `db:"fee" json:"fee"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
