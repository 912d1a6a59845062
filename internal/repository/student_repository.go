package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.first_name, s.last_name, s.email, s.phone, s.id_number, s.course_id, s.branch,
        s.status, s.course_fee, s.total_paid, s.balance, s.created_at, s.updated_at,
        c.name AS course_name, c.type AS course_type`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN courses c ON c.id = s.course_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("s.branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%d OR s.id_number LIKE $%d OR s.phone LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "s.first_name",
		"id_number":  "s.id_number",
		"balance":    "s.balance",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student with course context by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s JOIN courses c ON c.id = s.course_id WHERE s.id = $1", studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByPhone fetches a student with course context by phone number.
func (r *StudentRepository) FindByPhone(ctx context.Context, phone string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s JOIN courses c ON c.id = s.course_id WHERE s.phone = $1", studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, phone); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByIDNumber checks whether a student with the national ID exists.
func (r *StudentRepository) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE id_number = $1 LIMIT 1", idNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check id number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, email, phone, id_number, course_id, branch, status, course_fee, total_paid, balance, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :id_number, :course_id, :branch, :status, :course_fee, :total_paid, :balance, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		// Concurrent registrations can both pass the exists check; the
		// unique index is the arbiter, so callers need the raw violation.
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ApplyPayment accumulates a payment onto the student's running totals in
// a single statement, so concurrent payments cannot lose updates. The
// returned values reflect the post-payment state.
func (r *StudentRepository) ApplyPayment(ctx context.Context, id string, amount int64) (totalPaid, balance int64, err error) {
	const query = `UPDATE students
        SET total_paid = total_paid + $2,
            balance = course_fee - (total_paid + $2),
            updated_at = $3
        WHERE id = $1
        RETURNING total_paid, balance`
	row := r.db.QueryRowxContext(ctx, query, id, amount, time.Now().UTC())
	if err := row.Scan(&totalPaid, &balance); err != nil {
		return 0, 0, err
	}
	return totalPaid, balance, nil
}

// UpdateStatus transitions the enrollment lifecycle state.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}
