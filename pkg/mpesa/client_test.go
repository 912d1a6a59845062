package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/pkg/config"
)

func testConfig(baseURL string) config.MpesaConfig {
	return config.MpesaConfig{
		BaseURL:        baseURL,
		ShortCode:      "174379",
		PassKey:        "testpasskey",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		CallbackURL:    "https://example.com/api/payments/callback",
	}
}

func TestClientTokenCaching(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v1/generate", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		tokenCalls++
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "expires_in": "3599"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)

	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// Second call is served from cache.
	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)

	// Expiry forces a fresh exchange.
	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenCalls)
}

func TestClientStkPushSuccess(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "expires_in": "3599"})
		case "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "20240615143045", payload["Timestamp"])
			wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "testpasskey" + "20240615143045"))
			assert.Equal(t, wantPassword, payload["Password"])
			assert.Equal(t, "CustomerPayBillOnline", payload["TransactionType"])
			assert.Equal(t, "254712345678", payload["PhoneNumber"])

			json.NewEncoder(w).Encode(map[string]string{
				"MerchantRequestID":   "merch-1",
				"CheckoutRequestID":   "ws_CO_123",
				"ResponseCode":        "0",
				"ResponseDescription": "Success. Request accepted for processing",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	client.now = func() time.Time { return fixed }

	result := client.InitiateSTKPush(context.Background(), StkPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           4000,
		AccountReference: "stud-1",
		TransactionDesc:  "Course fee",
	})
	assert.True(t, result.Success)
	assert.Equal(t, "ws_CO_123", result.CheckoutRequestID)
	assert.Equal(t, "merch-1", result.MerchantRequestID)
	assert.Empty(t, result.Error)
}

func TestClientStkPushRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"errorMessage": "Invalid PhoneNumber"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	result := client.InitiateSTKPush(context.Background(), StkPushRequest{PhoneNumber: "bad", Amount: 100})

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid PhoneNumber", result.Error)
}

func TestClientStkPushProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	srv.Close() // refuse connections

	client := NewClient(testConfig(srv.URL), nil)
	result := client.InitiateSTKPush(context.Background(), StkPushRequest{PhoneNumber: "254712345678", Amount: 100})

	// Network failure comes back inside the result, never as a panic or error.
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestCallbackSucceededAndMetadata(t *testing.T) {
	raw := `{
        "Body": {
            "stkCallback": {
                "MerchantRequestID": "merch-1",
                "CheckoutRequestID": "ws_CO_123",
                "ResultCode": 0,
                "ResultDesc": "The service request is processed successfully.",
                "CallbackMetadata": {
                    "Item": [
                        {"Name": "Amount", "Value": 4000},
                        {"Name": "MpesaReceiptNumber", "Value": "SFR4Q2XKQ1"},
                        {"Name": "PhoneNumber", "Value": 254712345678}
                    ]
                }
            }
        }
    }`
	var cb Callback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))

	stk := cb.Body.StkCallback
	assert.True(t, stk.Succeeded())
	assert.Equal(t, "SFR4Q2XKQ1", stk.MetadataString("MpesaReceiptNumber"))
	assert.Equal(t, "254712345678", stk.MetadataString("PhoneNumber"))
	assert.Equal(t, int64(4000), stk.MetadataAmount())
}

func TestCallbackCancelled(t *testing.T) {
	raw := `{
        "Body": {
            "stkCallback": {
                "MerchantRequestID": "merch-2",
                "CheckoutRequestID": "ws_CO_456",
                "ResultCode": 1032,
                "ResultDesc": "Request cancelled by user"
            }
        }
    }`
	var cb Callback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))

	stk := cb.Body.StkCallback
	assert.False(t, stk.Succeeded())
	assert.Empty(t, stk.MetadataString("MpesaReceiptNumber"))
}
