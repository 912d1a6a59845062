package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/pkg/mpesa"
)

type mockPusher struct {
	result mpesa.StkPushResult
	calls  int
	last   mpesa.StkPushRequest
}

func (m *mockPusher) InitiateSTKPush(ctx context.Context, req mpesa.StkPushRequest) mpesa.StkPushResult {
	m.calls++
	m.last = req
	return m.result
}

type mockMpesaRepo struct {
	created []models.MpesaTransaction
	results map[string]models.MpesaTransactionStatus
}

func newMockMpesaRepo() *mockMpesaRepo {
	return &mockMpesaRepo{results: make(map[string]models.MpesaTransactionStatus)}
}

func (m *mockMpesaRepo) Create(ctx context.Context, tx *models.MpesaTransaction) error {
	tx.ID = "mtx-1"
	m.created = append(m.created, *tx)
	return nil
}

func (m *mockMpesaRepo) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	for _, tx := range m.created {
		if tx.CheckoutRequestID == checkoutRequestID {
			if status, ok := m.results[checkoutRequestID]; ok {
				tx.Status = status
			}
			return &tx, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMpesaRepo) RecordResult(ctx context.Context, checkoutRequestID string, status models.MpesaTransactionStatus, resultCode int, resultDesc, receipt string) error {
	m.results[checkoutRequestID] = status
	return nil
}

func TestMpesaInitiatePushRecordsPending(t *testing.T) {
	pusher := &mockPusher{result: mpesa.StkPushResult{
		Success:           true,
		MerchantRequestID: "merch-1",
		CheckoutRequestID: "ws_CO_123",
	}}
	repo := newMockMpesaRepo()
	svc := NewMpesaService(pusher, repo, &mockActivity{}, nil, nil)

	result, err := svc.InitiatePush(context.Background(), StkPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           4000,
		AccountReference: "stud-1",
		TransactionDesc:  "Course fee",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.MpesaPending, repo.created[0].Status)
	assert.Equal(t, "ws_CO_123", repo.created[0].CheckoutRequestID)
	assert.Equal(t, int64(4000), repo.created[0].Amount)
}

func TestMpesaInitiatePushValidatesBeforeNetwork(t *testing.T) {
	pusher := &mockPusher{}
	svc := NewMpesaService(pusher, newMockMpesaRepo(), &mockActivity{}, nil, nil)

	_, err := svc.InitiatePush(context.Background(), StkPushRequest{Amount: -5})
	require.Error(t, err)
	assert.Zero(t, pusher.calls)
}

func TestMpesaInitiatePushProviderRejection(t *testing.T) {
	pusher := &mockPusher{result: mpesa.StkPushResult{Success: false, Error: "Invalid PhoneNumber"}}
	repo := newMockMpesaRepo()
	svc := NewMpesaService(pusher, repo, &mockActivity{}, nil, nil)

	result, err := svc.InitiatePush(context.Background(), StkPushRequest{
		PhoneNumber:      "bad",
		Amount:           100,
		AccountReference: "stud-1",
		TransactionDesc:  "fee",
	})
	// Provider failure is a result, not an error.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, repo.created)
}

func successCallback(checkoutID string) mpesa.Callback {
	var cb mpesa.Callback
	cb.Body.StkCallback = mpesa.StkCallback{
		MerchantRequestID: "merch-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "Processed successfully",
		CallbackMetadata: &mpesa.CallbackMetadata{Item: []mpesa.CallbackItem{
			{Name: "Amount", Value: float64(4000)},
			{Name: "MpesaReceiptNumber", Value: "SFR4Q2XKQ1"},
		}},
	}
	return cb
}

func TestMpesaCallbackConfirms(t *testing.T) {
	repo := newMockMpesaRepo()
	repo.created = append(repo.created, models.MpesaTransaction{
		CheckoutRequestID: "ws_CO_123",
		PhoneNumber:       "254712345678",
		Amount:            4000,
		Status:            models.MpesaPending,
	})
	activity := &mockActivity{}
	svc := NewMpesaService(&mockPusher{}, repo, activity, nil, nil)

	svc.HandleCallback(context.Background(), successCallback("ws_CO_123"))

	assert.Equal(t, models.MpesaConfirmed, repo.results["ws_CO_123"])
	assert.Equal(t, []models.ActivityType{models.ActivityMpesaConfirmed}, activity.recorded)
}

func TestMpesaCallbackFailure(t *testing.T) {
	repo := newMockMpesaRepo()
	activity := &mockActivity{}
	svc := NewMpesaService(&mockPusher{}, repo, activity, nil, nil)

	var cb mpesa.Callback
	cb.Body.StkCallback = mpesa.StkCallback{
		CheckoutRequestID: "ws_CO_456",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}
	svc.HandleCallback(context.Background(), cb)

	assert.Equal(t, models.MpesaFailed, repo.results["ws_CO_456"])
	assert.Empty(t, activity.recorded)
}

func TestMpesaCallbackMissingCheckoutIDIgnored(t *testing.T) {
	repo := newMockMpesaRepo()
	svc := NewMpesaService(&mockPusher{}, repo, &mockActivity{}, nil, nil)

	svc.HandleCallback(context.Background(), mpesa.Callback{})
	assert.Empty(t, repo.results)
}
