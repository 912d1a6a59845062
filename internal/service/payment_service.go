package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/internal/repository"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

const receiptMaxAttempts = 3

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ApplyPayment(ctx context.Context, id string, amount int64) (totalPaid, balance int64, err error)
}

type receiptNotifier interface {
	PaymentReceived(student *models.StudentDetail, payment *models.Payment, balance int64)
}

// RecordPaymentRequest books money received against a student.
type RecordPaymentRequest struct {
	StudentID     string               `json:"studentId" validate:"required"`
	Amount        int64                `json:"amount" validate:"required,gt=0"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required"`
	TransactionID *string              `json:"transactionId,omitempty"`
	CreatedBy     *string              `json:"-"`
	Branch        string               `json:"branch,omitempty"`
}

// PaymentService books payments and keeps student balances reconciled.
type paymentObserver interface {
	ObservePayment(method string, amount int64)
}

type PaymentService struct {
	payments  paymentRepository
	students  paymentStudentRepository
	activity  activityRecorder
	notifier  receiptNotifier
	metrics   paymentObserver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// WithMetrics attaches a payment counter. Optional; nil leaves payments
// uncounted.
func (s *PaymentService) WithMetrics(m paymentObserver) *PaymentService {
	s.metrics = m
	return s
}

// NewPaymentService constructs the payment service.
func NewPaymentService(payments paymentRepository, students paymentStudentRepository, activity activityRecorder, notifier receiptNotifier, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:  payments,
		students:  students,
		activity:  activity,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record persists the payment and applies it to the student's running
// totals with an atomic accumulate. A payment whose student has vanished is
// still kept (and logged) — the ledger is append-only — but it then has no
// effect on any balance.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	payment := &models.Payment{
		StudentID:     req.StudentID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		PaymentDate:   s.now(),
		CreatedBy:     req.CreatedBy,
		Branch:        req.Branch,
	}

	// Receipt numbers are timestamp + random suffix; regenerate on the
	// rare unique collision instead of failing the payment.
	for attempt := 0; ; attempt++ {
		payment.ReceiptNumber = s.newReceiptNumber()
		err = s.payments.Create(ctx, payment)
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) && attempt < receiptMaxAttempts-1 {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if student == nil {
		s.logger.Warn("payment recorded for missing student; balance not applied",
			zap.String("payment_id", payment.ID),
			zap.String("student_id", req.StudentID),
		)
		return payment, nil
	}

	totalPaid, balance, err := s.students.ApplyPayment(ctx, student.ID, req.Amount)
	if err != nil {
		// The payment row exists; surfacing a hard failure here would
		// double-charge on retry. Log and return the payment.
		s.logger.Error("failed to apply payment to student balance",
			zap.String("payment_id", payment.ID),
			zap.String("student_id", student.ID),
			zap.Error(err),
		)
		return payment, nil
	}

	s.activity.Record(ctx, models.ActivityPaymentReceived,
		"Payment received",
		fmt.Sprintf("%s %s paid %d via %s (balance %d)", student.FirstName, student.LastName, req.Amount, req.PaymentMethod, balance))

	if s.metrics != nil {
		s.metrics.ObservePayment(string(req.PaymentMethod), req.Amount)
	}

	if s.notifier != nil {
		student.TotalPaid = totalPaid
		student.Balance = balance
		s.notifier.PaymentReceived(student, payment, balance)
	}

	return payment, nil
}

// Get fetches a payment by ID, falling back to receipt-number lookup so
// printed receipts can be re-fetched by their visible identifier.
func (s *PaymentService) Get(ctx context.Context, idOrReceipt string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, idOrReceipt)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	payment, err = s.payments.FindByReceiptNumber(ctx, idOrReceipt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// List returns payments and pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *PaymentService) newReceiptNumber() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("RCPT-%d-%s", s.now().UnixMilli(), hex.EncodeToString(suffix))
}
