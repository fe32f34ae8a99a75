package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icepay-gateway/internal/domains/payment/model"
)

type stubService struct {
	checkout  func(orderID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error)
	ret       func(orderID uuid.UUID, params url.Values, cancel bool) (*model.Outcome, error)
	postback  func(params url.Values) (*model.Outcome, error)
	payment   func(id uuid.UUID) (*model.Payment, error)
	postbacks func(req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error)
}

func (s *stubService) StartCheckout(_ context.Context, orderID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	return s.checkout(orderID, req)
}

func (s *stubService) HandleReturn(_ context.Context, orderID uuid.UUID, params url.Values, cancel bool) (*model.Outcome, error) {
	return s.ret(orderID, params, cancel)
}

func (s *stubService) HandlePostback(_ context.Context, params url.Values) (*model.Outcome, error) {
	return s.postback(params)
}

func (s *stubService) GetPayment(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.payment(id)
}

func (s *stubService) ListPostbacks(_ context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error) {
	return s.postbacks(req)
}

func (s *stubService) RetryFailedPostbacks(context.Context, int) (model.RetryReport, error) {
	return model.RetryReport{}, nil
}

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/checkout/:order_id/icepay", h.StartCheckout)
	v1.GET("/checkout/:order_id/icepay/return", h.Return)
	v1.GET("/checkout/:order_id/icepay/cancel", h.Cancel)
	v1.GET("/webhooks/icepay/notify", h.NotifyHealth)
	v1.POST("/webhooks/icepay/notify", h.Notify)
	v1.GET("/admin/payments/postbacks", h.AdminListPostbacks)
	v1.GET("/admin/payments/:payment_id", h.AdminGetPayment)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestMapPaymentError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{model.NewValidationError("bad checksum"), http.StatusBadRequest, model.ErrCodeValidation},
		{model.NewPaymentNotFoundError("x"), http.StatusNotFound, model.ErrCodePaymentNotFound},
		{model.NewOrderNotFoundError("x"), http.StatusNotFound, model.ErrCodeOrderNotFound},
		{model.NewOrderMismatchError("a", "b"), http.StatusUnprocessableEntity, model.ErrCodeOrderMismatch},
		{model.NewAmountMismatchError("a", "b"), http.StatusUnprocessableEntity, model.ErrCodeAmountMismatch},
		{model.NewInvalidStateTransitionError(model.StateAuthorized, model.StatusOpen), http.StatusConflict, model.ErrCodeInvalidStateTransition},
		{model.NewPaymentFailedError("o", "declined"), http.StatusPaymentRequired, model.ErrCodePaymentFailed},
		{model.NewGatewayUnavailableError(errors.New("timeout")), http.StatusServiceUnavailable, model.ErrCodeGatewayUnavailable},
		{model.ErrConcurrentUpdate, http.StatusConflict, model.ErrCodeConcurrentUpdate},
		{errors.New("db down"), http.StatusInternalServerError, model.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code := mapPaymentError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestStartCheckout(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		checkout: func(id uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
			assert.Equal(t, orderID, id)
			assert.Equal(t, "nl-NL", req.Language)
			return &model.CheckoutResponse{OrderID: id, RedirectURL: "https://pay.example/x"}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/"+orderID.String()+"/icepay", strings.NewReader(`{"language":"nl-NL"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "https://pay.example/x", data["redirect_url"])
}

func TestStartCheckout_GatewayDown(t *testing.T) {
	svc := &stubService{
		checkout: func(uuid.UUID, model.CheckoutRequest) (*model.CheckoutResponse, error) {
			return nil, model.NewGatewayUnavailableError(errors.New("dial tcp: refused"))
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/"+uuid.NewString()+"/icepay", strings.NewReader(`{"language":"en"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}

func TestReturnAndCancel(t *testing.T) {
	orderID := uuid.New()
	var gotCancel []bool
	svc := &stubService{
		ret: func(id uuid.UUID, params url.Values, cancel bool) (*model.Outcome, error) {
			assert.Equal(t, orderID, id)
			assert.Equal(t, "SUCCESS", params.Get("Status"))
			gotCancel = append(gotCancel, cancel)
			if cancel {
				return &model.Outcome{Kind: model.OutcomeCancelled, Message: "You have canceled checkout at ICEPAY"}, nil
			}
			return &model.Outcome{Kind: model.OutcomeSuccess}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/"+orderID.String()+"/icepay/return?Status=SUCCESS", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decode(t, w)["data"].(map[string]interface{})["outcome"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/"+orderID.String()+"/icepay/cancel?Status=SUCCESS", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["message"], "canceled checkout")

	assert.Equal(t, []bool{false, true}, gotCancel)
}

func TestReturn_InvalidOrderID(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/nope/icepay/return", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifyHealth(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/icepay/notify", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name       string
		outcome    *model.Outcome
		err        error
		wantStatus int
	}{
		{"applied", &model.Outcome{Kind: model.OutcomeSuccess}, nil, http.StatusOK},
		{"stale", &model.Outcome{Kind: model.OutcomeNoOp}, nil, http.StatusOK},
		{"bad checksum", nil, model.NewValidationError("checksum mismatch"), http.StatusBadRequest},
		{"tampered amount", nil, model.NewAmountMismatchError("10.00 EUR", "1 EUR"), http.StatusUnprocessableEntity},
		{"reported failure", nil, model.NewPaymentFailedError("o", "declined"), http.StatusPaymentRequired},
		{"infrastructure", nil, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				postback: func(params url.Values) (*model.Outcome, error) {
					assert.Equal(t, "OPEN", params.Get("Status"))
					return tt.outcome, tt.err
				},
			}
			r := newTestRouter(svc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/icepay/notify", strings.NewReader("Status=OPEN&Merchant=10000"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAdminGetPayment(t *testing.T) {
	id := uuid.New()
	svc := &stubService{
		payment: func(got uuid.UUID) (*model.Payment, error) {
			if got != id {
				return nil, model.NewPaymentNotFoundError(got.String())
			}
			return &model.Payment{ID: id, State: model.StateOpen, Amount: 1250, Currency: "EUR"}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "open", data["state"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListPostbacks(t *testing.T) {
	paymentID := uuid.New()
	svc := &stubService{
		postbacks: func(req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error) {
			require.NotNil(t, req.PaymentID)
			assert.Equal(t, paymentID, *req.PaymentID)
			assert.True(t, req.Failed)
			assert.Equal(t, 2, req.Page)
			assert.Equal(t, 20, req.Limit)
			return []*model.PostbackLog{{ID: uuid.New()}}, 21, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/postbacks?payment_id="+paymentID.String()+"&failed=true&page=2&limit=500", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	meta := decode(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(21), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])
}
