package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swiftdrive/driveschool-api/internal/service"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
	"github.com/swiftdrive/driveschool-api/pkg/mpesa"
	"github.com/swiftdrive/driveschool-api/pkg/response"
)

// MpesaHandler exposes STK push initiation, the provider webhook, and push
// status lookups.
type MpesaHandler struct {
	mpesa *service.MpesaService
}

// NewMpesaHandler constructs MpesaHandler.
func NewMpesaHandler(svc *service.MpesaService) *MpesaHandler {
	return &MpesaHandler{mpesa: svc}
}

// InitiatePush godoc
// @Summary Prompt a phone for payment via STK push
// @Tags Mpesa
// @Accept json
// @Produce json
// @Param payload body service.StkPushRequest true "Push payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/stkpush [post]
func (h *MpesaHandler) InitiatePush(c *gin.Context) {
	var req service.StkPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	result, err := h.mpesa.InitiatePush(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	// A provider rejection keeps the result-object body but is not a 200.
	status := http.StatusOK
	if !result.Success {
		status = appErrors.ErrUpstream.Status
	}
	response.JSON(c, status, result, nil)
}

// Callback receives the provider's asynchronous result for a push. The
// provider expects a 200 acknowledgement no matter what; anything else
// triggers provider-side retries, so even unparseable bodies are accepted
// and logged by the service.
func (h *MpesaHandler) Callback(c *gin.Context) {
	var cb mpesa.Callback
	if err := c.ShouldBindJSON(&cb); err == nil {
		h.mpesa.HandleCallback(c.Request.Context(), cb)
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// Status godoc
// @Summary Look up an STK push by checkout request id
// @Tags Mpesa
// @Produce json
// @Param checkoutRequestId path string true "Checkout request ID"
// @Success 200 {object} response.Envelope
// @Router /payments/stkpush/{checkoutRequestId} [get]
func (h *MpesaHandler) Status(c *gin.Context) {
	tx, err := h.mpesa.Status(c.Request.Context(), c.Param("checkoutRequestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tx, nil)
}
