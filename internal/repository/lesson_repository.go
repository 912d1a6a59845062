package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// LessonRepository manages the per-student lesson slots.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// CreateBatch initializes the fixed lesson slots 1..count for a student.
func (r *LessonRepository) CreateBatch(ctx context.Context, studentID string, count int) error {
	now := time.Now().UTC()
	lessons := make([]models.Lesson, 0, count)
	for i := 1; i <= count; i++ {
		lessons = append(lessons, models.Lesson{
			ID:           uuid.NewString(),
			StudentID:    studentID,
			LessonNumber: i,
			Completed:    false,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	const query = `INSERT INTO lessons (id, student_id, lesson_number, completed, completed_at, instructor_id, notes, created_at, updated_at)
        VALUES (:id, :student_id, :lesson_number, :completed, :completed_at, :instructor_id, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lessons); err != nil {
		return fmt.Errorf("create lessons: %w", err)
	}
	return nil
}

// ListByStudent returns the student's lessons ordered by lesson number.
func (r *LessonRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	const query = `SELECT id, student_id, lesson_number, completed, completed_at, instructor_id, notes, created_at, updated_at
        FROM lessons WHERE student_id = $1 ORDER BY lesson_number`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, studentID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// Find fetches a single lesson slot.
func (r *LessonRepository) Find(ctx context.Context, studentID string, lessonNumber int) (*models.Lesson, error) {
	const query = `SELECT id, student_id, lesson_number, completed, completed_at, instructor_id, notes, created_at, updated_at
        FROM lessons WHERE student_id = $1 AND lesson_number = $2`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, studentID, lessonNumber); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// SetCompletion records the completion state of a lesson slot.
func (r *LessonRepository) SetCompletion(ctx context.Context, studentID string, lessonNumber int, completed bool, completedAt *time.Time, instructorID *string, notes string) error {
	const query = `UPDATE lessons
        SET completed = $3, completed_at = $4, instructor_id = $5, notes = $6, updated_at = $7
        WHERE student_id = $1 AND lesson_number = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, lessonNumber, completed, completedAt, instructorID, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set lesson completion: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lesson %d for student %s: no such row", lessonNumber, studentID)
	}
	return nil
}

// CountIncomplete returns how many of the student's lessons remain open.
func (r *LessonRepository) CountIncomplete(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lessons WHERE student_id = $1 AND NOT completed", studentID); err != nil {
		return 0, fmt.Errorf("count incomplete lessons: %w", err)
	}
	return count, nil
}
