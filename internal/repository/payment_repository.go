package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// PaymentRepository manages the append-only payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// IsUniqueViolation reports whether the error is a Postgres unique-key
// violation, used by the receipt-number retry loop.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Create inserts a payment row.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	payment.CreatedAt = now
	const query = `INSERT INTO payments (id, student_id, amount, payment_method, transaction_id, payment_date, receipt_number, created_by, branch, created_at)
        VALUES (:id, :student_id, :amount, :payment_method, :transaction_id, :payment_date, :receipt_number, :created_by, :branch, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID fetches a payment by its identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, amount, payment_method, transaction_id, payment_date, receipt_number, created_by, branch, created_at
        FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByReceiptNumber fetches a payment by its receipt number.
func (r *PaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error) {
	const query = `SELECT id, student_id, amount, payment_method, transaction_id, payment_date, receipt_number, created_by, branch, created_at
        FROM payments WHERE receipt_number = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, receiptNumber); err != nil {
		return nil, err
	}
	return &payment, nil
}

// List returns payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := "FROM payments"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)+1))
		args = append(args, filter.Method)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("payment_date < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, amount, payment_method, transaction_id, payment_date, receipt_number, created_by, branch, created_at
        %s ORDER BY payment_date DESC LIMIT %d OFFSET %d`, base, size, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}
