package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// MpesaRepository stores push transactions for callback correlation.
type MpesaRepository struct {
	db *sqlx.DB
}

// NewMpesaRepository constructs an MpesaRepository.
func NewMpesaRepository(db *sqlx.DB) *MpesaRepository {
	return &MpesaRepository{db: db}
}

// Create records a freshly accepted push in pending state.
func (r *MpesaRepository) Create(ctx context.Context, tx *models.MpesaTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Status == "" {
		tx.Status = models.MpesaPending
	}
	const query = `INSERT INTO mpesa_transactions (id, merchant_request_id, checkout_request_id, phone_number, amount, account_reference, status, result_code, result_desc, mpesa_receipt, created_at, updated_at)
        VALUES (:id, :merchant_request_id, :checkout_request_id, :phone_number, :amount, :account_reference, :status, :result_code, :result_desc, :mpesa_receipt, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("create mpesa transaction: %w", err)
	}
	return nil
}

// FindByCheckoutID fetches a transaction by the provider's checkout identifier.
func (r *MpesaRepository) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	const query = `SELECT id, merchant_request_id, checkout_request_id, phone_number, amount, account_reference, status, result_code, result_desc, mpesa_receipt, created_at, updated_at
        FROM mpesa_transactions WHERE checkout_request_id = $1`
	var tx models.MpesaTransaction
	if err := r.db.GetContext(ctx, &tx, query, checkoutRequestID); err != nil {
		return nil, err
	}
	return &tx, nil
}

// RecordResult stores the callback outcome against the pending push.
func (r *MpesaRepository) RecordResult(ctx context.Context, checkoutRequestID string, status models.MpesaTransactionStatus, resultCode int, resultDesc, receipt string) error {
	const query = `UPDATE mpesa_transactions
        SET status = $2, result_code = $3, result_desc = $4, mpesa_receipt = $5, updated_at = $6
        WHERE checkout_request_id = $1`
	res, err := r.db.ExecContext(ctx, query, checkoutRequestID, status, resultCode, resultDesc, receipt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record mpesa result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mpesa transaction %s: no such row", checkoutRequestID)
	}
	return nil
}
