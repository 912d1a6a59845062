package models

import "time"

// Lesson is one of a student's fixed, ordered instruction slots. Rows are
// created at registration, one per lesson number 1..N, and owned by the
// student for their lifetime.
type Lesson struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	LessonNumber int        `db:"lesson_number" json:"lesson_number"`
	Completed    bool       `db:"completed" json:"completed"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	InstructorID *string    `db:"instructor_id" json:"instructor_id,omitempty"`
	Notes        string     `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// LessonView is a lesson as shown to clients, with the display-side lock
// flag applied for students carrying a balance.
type LessonView struct {
	LessonNumber int        `json:"lesson_number"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	InstructorID *string    `json:"instructor_id,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Locked       bool       `json:"locked"`
}

// LessonUpdate is one entry of a bulk lesson replacement.
type LessonUpdate struct {
	LessonNumber int     `json:"lesson_number" validate:"required,min=1"`
	Completed    bool    `json:"completed"`
	InstructorID *string `json:"instructor_id,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}
