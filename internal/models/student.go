package models

import "time"

// StudentStatus enumerates enrollment lifecycle states.
type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentCompleted StudentStatus = "completed"
	StudentDropped   StudentStatus = "dropped"
)

// Student is an enrolled learner. CourseFee snapshots the course fee at
// registration; Balance is persisted and must equal CourseFee - TotalPaid
// after every payment-affecting mutation.
type Student struct {
	ID        string        `db:"id" json:"id"`
	FirstName string        `db:"first_name" json:"first_name"`
	LastName  string        `db:"last_name" json:"last_name"`
	Email     string        `db:"email" json:"email"`
	Phone     string        `db:"phone" json:"phone"`
	IDNumber  string        `db:"id_number" json:"id_number"`
	CourseID  string        `db:"course_id" json:"course_id"`
	Branch    string        `db:"branch" json:"branch"`
	Status    StudentStatus `db:"status" json:"status"`
	CourseFee int64         `db:"course_fee" json:"course_fee"`
	TotalPaid int64         `db:"total_paid" json:"total_paid"`
	Balance   int64         `db:"balance" json:"balance"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail is a student plus course context and lesson progress.
type StudentDetail struct {
	Student
	CourseName    string       `db:"course_name" json:"course_name"`
	CourseType    string       `db:"course_type" json:"course_type"`
	PaymentStatus string       `json:"payment_status"`
	Lessons       []LessonView `json:"lessons,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CourseID  string
	Branch    string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
