package models

import "time"

// Stats aggregates the dashboard headline counts.
type Stats struct {
	TotalStudents  int       `db:"total_students" json:"totalStudents"`
	ActiveStudents int       `db:"active_students" json:"activeStudents"`
	Instructors    int       `db:"instructors" json:"instructors"`
	MonthlyRevenue int64     `db:"monthly_revenue" json:"monthlyRevenue"`
	GeneratedAt    time.Time `json:"generated_at"`
}
