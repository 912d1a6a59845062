package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
	"github.com/swiftdrive/driveschool-api/pkg/mpesa"
)

type stkPusher interface {
	InitiateSTKPush(ctx context.Context, req mpesa.StkPushRequest) mpesa.StkPushResult
}

type mpesaTransactionRepository interface {
	Create(ctx context.Context, tx *models.MpesaTransaction) error
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error)
	RecordResult(ctx context.Context, checkoutRequestID string, status models.MpesaTransactionStatus, resultCode int, resultDesc, receipt string) error
}

// StkPushRequest is the client-facing push initiation payload.
type StkPushRequest struct {
	PhoneNumber      string `json:"phoneNumber" validate:"required"`
	Amount           int64  `json:"amount" validate:"required,gt=0"`
	AccountReference string `json:"accountReference" validate:"required"`
	TransactionDesc  string `json:"transactionDesc" validate:"required"`
}

// MpesaService drives the STK-Push flow: it initiates prompts and records
// the asynchronous outcomes the provider posts back.
type pushObserver interface {
	ObserveStkPush(outcome string)
}

type MpesaService struct {
	client    stkPusher
	repo      mpesaTransactionRepository
	activity  activityRecorder
	metrics   pushObserver
	validator *validator.Validate
	logger    *zap.Logger
}

// WithMetrics attaches a push-outcome counter. Optional; nil leaves pushes
// uncounted.
func (s *MpesaService) WithMetrics(m pushObserver) *MpesaService {
	s.metrics = m
	return s
}

// NewMpesaService constructs the mobile-money service.
func NewMpesaService(client stkPusher, repo mpesaTransactionRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *MpesaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MpesaService{client: client, repo: repo, activity: activity, validator: validate, logger: logger}
}

// InitiatePush validates the payload, then asks the provider to prompt the
// payer. Validation failures surface as errors before any network call;
// provider failures come back inside the result, never as errors.
func (s *MpesaService) InitiatePush(ctx context.Context, req StkPushRequest) (*mpesa.StkPushResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stk push payload")
	}

	result := s.client.InitiateSTKPush(ctx, mpesa.StkPushRequest{
		PhoneNumber:      req.PhoneNumber,
		Amount:           req.Amount,
		AccountReference: req.AccountReference,
		TransactionDesc:  req.TransactionDesc,
	})

	if !result.Success {
		if s.metrics != nil {
			s.metrics.ObserveStkPush("rejected")
		}
		return &result, nil
	}
	if s.metrics != nil {
		s.metrics.ObserveStkPush("accepted")
	}

	tx := &models.MpesaTransaction{
		MerchantRequestID: result.MerchantRequestID,
		CheckoutRequestID: result.CheckoutRequestID,
		PhoneNumber:       req.PhoneNumber,
		Amount:            req.Amount,
		AccountReference:  req.AccountReference,
		Status:            models.MpesaPending,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		// The prompt already went out; losing the correlation row is worth
		// a loud log but not a failed response.
		s.logger.Error("failed to store mpesa transaction",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.Error(err),
		)
	}

	return &result, nil
}

// HandleCallback records the provider's verdict for a pending push. It
// never returns an error for unknown or repeated callbacks — the webhook
// must always be acknowledged — but it does log them.
func (s *MpesaService) HandleCallback(ctx context.Context, cb mpesa.Callback) {
	stk := cb.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		s.logger.Warn("mpesa callback missing checkout request id")
		return
	}

	status := models.MpesaFailed
	receipt := ""
	if stk.Succeeded() {
		status = models.MpesaConfirmed
		receipt = stk.MetadataString("MpesaReceiptNumber")
	}

	if err := s.repo.RecordResult(ctx, stk.CheckoutRequestID, status, stk.ResultCode, stk.ResultDesc, receipt); err != nil {
		s.logger.Warn("failed to record mpesa callback",
			zap.String("checkout_request_id", stk.CheckoutRequestID),
			zap.Int("result_code", stk.ResultCode),
			zap.Error(err),
		)
		return
	}

	if status == models.MpesaConfirmed {
		tx, err := s.repo.FindByCheckoutID(ctx, stk.CheckoutRequestID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("failed to reload confirmed mpesa transaction", zap.Error(err))
			}
			return
		}
		s.activity.Record(ctx, models.ActivityMpesaConfirmed,
			"M-Pesa payment confirmed",
			fmt.Sprintf("Mobile payment of KES %d from %s confirmed", tx.Amount, tx.PhoneNumber))
	} else {
		s.logger.Info("mpesa push failed",
			zap.String("checkout_request_id", stk.CheckoutRequestID),
			zap.Int("result_code", stk.ResultCode),
			zap.String("result_desc", stk.ResultDesc),
		)
	}
}

// Status looks up a push transaction by its checkout identifier.
func (s *MpesaService) Status(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	tx, err := s.repo.FindByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	return tx, nil
}
