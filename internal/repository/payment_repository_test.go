package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), "stud-1", int64(4000), "cash", nil, sqlmock.AnyArg(), "RCPT-1718461845000-a1b2c3", nil, "Westlands", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{
		StudentID:     "stud-1",
		Amount:        4000,
		PaymentMethod: models.MethodCash,
		ReceiptNumber: "RCPT-1718461845000-a1b2c3",
		Branch:        "Westlands",
	}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaymentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_receipt_number_key"})

	err := repo.Create(context.Background(), &models.Payment{
		StudentID:     "stud-1",
		Amount:        4000,
		PaymentMethod: models.MethodCash,
		ReceiptNumber: "RCPT-1718461845000-a1b2c3",
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindByReceiptNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "payment_method", "transaction_id", "payment_date", "receipt_number", "created_by", "branch", "created_at"}).
		AddRow("pay-1", "stud-1", int64(4000), "mpesa", "SFD3KQXLM9", now, "RCPT-1718461845000-a1b2c3", nil, "Westlands", now)
	mock.ExpectQuery("SELECT .+ FROM payments WHERE receipt_number = \\$1").
		WithArgs("RCPT-1718461845000-a1b2c3").
		WillReturnRows(rows)

	payment, err := repo.FindByReceiptNumber(context.Background(), "RCPT-1718461845000-a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	assert.Equal(t, models.MethodMpesa, payment.PaymentMethod)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "SFD3KQXLM9", *payment.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListWithDateRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "payment_method", "transaction_id", "payment_date", "receipt_number", "created_by", "branch", "created_at"}).
		AddRow("pay-1", "stud-1", int64(4000), "cash", nil, from.Add(24*time.Hour), "RCPT-1718461845000-a1b2c3", nil, "Westlands", from)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND student_id = $1 AND payment_date >= $2 AND payment_date < $3 ORDER BY payment_date DESC LIMIT 20 OFFSET 0")).
		WithArgs("stud-1", from, to).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("stud-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{StudentID: "stud-1", From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create payment: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
