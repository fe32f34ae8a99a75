package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"icepay-gateway/internal/domains/payment/model"
	"icepay-gateway/internal/domains/payment/service"
	res "icepay-gateway/internal/shared/response"
	"icepay-gateway/pkg/logger"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// =====================================================
// CHECKOUT ENDPOINTS
// =====================================================

// StartCheckout creates an ICEPAY payment and returns the redirect URL
// POST /api/v1/checkout/:order_id/icepay
func (h *PaymentHandler) StartCheckout(c *gin.Context) {
	// Step 1: Get order ID from URL
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_ORDER_ID", "Invalid order ID")
		return
	}

	// Step 2: Bind request body
	var req model.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	// Step 3: Call service
	resp, err := h.paymentService.StartCheckout(c.Request.Context(), orderID, req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.Error(c, statusCode, errCode, errorMessage(err))
		return
	}

	// Step 4: Return redirect URL
	res.Success(c, http.StatusCreated, "Redirect the payer to ICEPAY", resp)
}

// Return handles the payer coming back from ICEPAY
// GET /api/v1/checkout/:order_id/icepay/return
func (h *PaymentHandler) Return(c *gin.Context) {
	h.handleReturn(c, false)
}

// Cancel handles the payer coming back through the error URL
// GET /api/v1/checkout/:order_id/icepay/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	h.handleReturn(c, true)
}

func (h *PaymentHandler) handleReturn(c *gin.Context, cancelFlow bool) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_ORDER_ID", "Invalid order ID")
		return
	}

	outcome, err := h.paymentService.HandleReturn(c.Request.Context(), orderID, c.Request.URL.Query(), cancelFlow)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.Error(c, statusCode, errCode, errorMessage(err))
		return
	}

	res.Success(c, http.StatusOK, outcome.Message, model.NewReconcileResponse(outcome))
}

// =====================================================
// WEBHOOK ENDPOINTS
// =====================================================

// NotifyHealth answers ICEPAY's reachability probe
// GET /api/v1/webhooks/icepay/notify
func (h *PaymentHandler) NotifyHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Notify handles an ICEPAY postback
// POST /api/v1/webhooks/icepay/notify
func (h *PaymentHandler) Notify(c *gin.Context) {
	// Step 1: Parse form-encoded body
	if err := c.Request.ParseForm(); err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid postback body")
		return
	}

	// Step 2: Process postback
	outcome, err := h.paymentService.HandlePostback(c.Request.Context(), c.Request.PostForm)

	// Step 3: Surface failures so ICEPAY and our alerting can see them
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		if statusCode >= http.StatusInternalServerError {
			logger.Error("icepay postback failed", err)
		}
		res.Error(c, statusCode, errCode, errorMessage(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"outcome": outcome.Kind,
	})
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// AdminGetPayment returns a payment with its reconciliation state
// GET /api/v1/admin/payments/:payment_id
func (h *PaymentHandler) AdminGetPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_PAYMENT_ID", "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.Error(c, statusCode, errCode, errorMessage(err))
		return
	}

	res.Success(c, http.StatusOK, "OK", model.NewPaymentResponse(payment))
}

// AdminListPostbacks lists stored postbacks
// GET /api/v1/admin/payments/postbacks?payment_id=&failed=&page=&limit=
func (h *PaymentHandler) AdminListPostbacks(c *gin.Context) {
	// Step 1: Bind query parameters
	var req model.ListPostbacksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		res.Error(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	if raw := c.Query("payment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			res.Error(c, http.StatusBadRequest, "INVALID_PAYMENT_ID", "Invalid payment ID")
			return
		}
		req.PaymentID = &id
	}
	req.Normalize()

	// Step 2: Call service
	logs, total, err := h.paymentService.ListPostbacks(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.Error(c, statusCode, errCode, errorMessage(err))
		return
	}

	res.SuccessWithMeta(c, http.StatusOK, logs, res.NewMeta(req.Page, req.Limit, total))
}

// =====================================================
// ERROR MAPPING HELPER
// =====================================================

func mapPaymentError(err error) (statusCode int, errorCode string) {
	paymentErr, ok := model.IsPaymentError(err)
	if !ok {
		if errors.Is(err, model.ErrConcurrentUpdate) {
			return http.StatusConflict, model.ErrCodeConcurrentUpdate
		}
		return http.StatusInternalServerError, model.ErrCodeInternalError
	}

	switch paymentErr.Code {
	case model.ErrCodeValidation:
		statusCode = http.StatusBadRequest
	case model.ErrCodePaymentNotFound, model.ErrCodeOrderNotFound:
		statusCode = http.StatusNotFound
	case model.ErrCodeOrderMismatch, model.ErrCodeAmountMismatch:
		statusCode = http.StatusUnprocessableEntity
	case model.ErrCodeInvalidStateTransition, model.ErrCodeConcurrentUpdate:
		statusCode = http.StatusConflict
	case model.ErrCodePaymentFailed:
		statusCode = http.StatusPaymentRequired
	case model.ErrCodeGatewayUnavailable:
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}

	return statusCode, paymentErr.Code
}

// errorMessage hides internal error detail from callers.
func errorMessage(err error) string {
	if paymentErr, ok := model.IsPaymentError(err); ok {
		return paymentErr.Message
	}
	return "Internal server error"
}
