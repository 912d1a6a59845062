package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/pkg/config"
)

// Daraja requires this exact fixed-width timestamp layout; the request
// password is derived from it and must match to the second.
const timestampLayout = "20060102150405"

// Client talks to the Daraja STK-Push API. All provider and network
// failures are converted into StkPushResult{Success: false}; nothing is
// raised past the client boundary.
type Client struct {
	cfg    config.MpesaConfig
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient constructs a Daraja client.
func NewClient(cfg config.MpesaConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		now:    func() time.Time { return time.Now() },
	}
}

// StkPushRequest describes a push-payment prompt.
type StkPushRequest struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	TransactionDesc  string
}

// StkPushResult reports the provider's synchronous acknowledgement. The
// customer's PIN entry arrives later via callback.
type StkPushResult struct {
	Success           bool   `json:"success"`
	MerchantRequestID string `json:"merchant_request_id,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	ResponseDesc      string `json:"response_description,omitempty"`
	Error             string `json:"error,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorMessage        string `json:"errorMessage"`
}

// Token obtains (and caches) a short-lived OAuth access token.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	// Tokens nominally last an hour; refresh a minute early.
	c.tokenExpiry = c.now().Add(59 * time.Minute)
	return c.token, nil
}

// InitiateSTKPush sends a PIN prompt to the payer's phone. The result is
// always returned, never an error: callers must check Success.
func (c *Client) InitiateSTKPush(ctx context.Context, req StkPushRequest) StkPushResult {
	token, err := c.Token(ctx)
	if err != nil {
		c.logger.Warn("mpesa token exchange failed", zap.Error(err))
		return StkPushResult{Success: false, Error: err.Error()}
	}

	ts := c.now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + ts))

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            req.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return StkPushResult{Success: false, Error: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return StkPushResult{Success: false, Error: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("mpesa stk push failed", zap.Error(err))
		return StkPushResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	var pushResp stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return StkPushResult{Success: false, Error: fmt.Sprintf("decode push response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK || pushResp.ResponseCode != "0" {
		msg := pushResp.ErrorMessage
		if msg == "" {
			msg = pushResp.ResponseDescription
		}
		if msg == "" {
			msg = fmt.Sprintf("push rejected with status %d", resp.StatusCode)
		}
		c.logger.Warn("mpesa stk push rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("response_code", pushResp.ResponseCode),
			zap.String("message", msg),
		)
		return StkPushResult{Success: false, Error: msg}
	}

	return StkPushResult{
		Success:           true,
		MerchantRequestID: pushResp.MerchantRequestID,
		CheckoutRequestID: pushResp.CheckoutRequestID,
		ResponseDesc:      pushResp.ResponseDescription,
	}
}
