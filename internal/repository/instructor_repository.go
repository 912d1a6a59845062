package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// InstructorRepository manages instructor persistence.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

const instructorColumns = `i.id, i.user_id, i.specializations, i.branch, i.active, i.created_at, i.updated_at,
        u.full_name, u.phone, u.email`

// List returns instructors with their linked user's display fields.
func (r *InstructorRepository) List(ctx context.Context, branch string, activeOnly bool) ([]models.InstructorDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors i JOIN users u ON u.id = i.user_id WHERE 1=1", instructorColumns)
	args := []interface{}{}
	if branch != "" {
		args = append(args, branch)
		query += fmt.Sprintf(" AND i.branch = $%d", len(args))
	}
	if activeOnly {
		query += " AND i.active"
	}
	query += " ORDER BY u.full_name"

	var instructors []models.InstructorDetail
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// FindByID fetches an instructor with user context.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.InstructorDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors i JOIN users u ON u.id = i.user_id WHERE i.id = $1", instructorColumns)
	var detail models.InstructorDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	instructor.CreatedAt = now
	instructor.UpdatedAt = now
	const query = `INSERT INTO instructors (id, user_id, specializations, branch, active, created_at, updated_at)
        VALUES (:id, :user_id, :specializations, :branch, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Update modifies an existing instructor.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instructors SET specializations = :specializations, branch = :branch, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("update instructor: %w", err)
	}
	return nil
}
