package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"icepay-gateway/internal/domains/payment/gateway"
	"icepay-gateway/internal/domains/payment/gateway/icepay"
	"icepay-gateway/internal/domains/payment/model"
	repo "icepay-gateway/internal/domains/payment/repository"
	"icepay-gateway/pkg/logger"
)

// Config holds service-level settings that are not ICEPAY credentials.
type Config struct {
	// PublicBaseURL is where ICEPAY sends the payer back, e.g. https://shop.example.com
	PublicBaseURL string
	TestMode      bool
}

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================
type paymentService struct {
	cfg       Config
	payments  repo.PaymentRepository
	orders    repo.OrderRepository
	postbacks repo.PostbackLogRepository
	gateway   gateway.IcepayGateway
	clock     Clock

	// Browser returns are matched by scanning the order's payments,
	// postbacks by the payment id they carry.
	returnReconciler   *Reconciler
	postbackReconciler *Reconciler
}

func NewPaymentService(
	cfg Config,
	deps ReconcilerDeps,
	postbacks repo.PostbackLogRepository,
	gw gateway.IcepayGateway,
) PaymentService {
	if deps.GatewayLabel == "" {
		deps.GatewayLabel = gw.DisplayLabel()
	}

	returnReconciler := NewReconciler(deps, NewOrderScanResolver(deps.Payments, model.GatewayIcepay))
	postbackReconciler := NewReconciler(deps, NewByIDResolver(deps.Payments, model.GatewayIcepay))

	return &paymentService{
		cfg:                cfg,
		payments:           deps.Payments,
		orders:             deps.Orders,
		postbacks:          postbacks,
		gateway:            gw,
		clock:              returnReconciler.deps.Clock,
		returnReconciler:   returnReconciler,
		postbackReconciler: postbackReconciler,
	}
}

// =====================================================
// CHECKOUT
// =====================================================

// StartCheckout initiates an ICEPAY basic-mode payment
//
// Business Logic Flow:
// 1. Validate request and load order
// 2. Create payment in state new
// 3. Request redirect URL from ICEPAY
// 4. On failure remove the speculative payment and report the gateway as unavailable
func (s *paymentService) StartCheckout(
	ctx context.Context,
	orderID uuid.UUID,
	req model.CheckoutRequest,
) (*model.CheckoutResponse, error) {
	// Step 1: Validate request and load order
	if err := req.Validate(); err != nil {
		return nil, model.NewPaymentError(model.ErrCodeValidation, "Invalid checkout request", err)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Totals finer than the currency's minor unit are refused; a postback
	// amount could never match them.
	amount, ok := ToMinorUnits(order.Total, order.Currency)
	rounded := order.Total.Round(currencyExponent(order.Currency))
	if !ok || amount <= 0 {
		return nil, model.NewValidationError(fmt.Sprintf("order total %s cannot be charged", order.Total))
	}

	// Step 2: Create payment in state new
	now := s.clock()
	payment := &model.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Gateway:   model.GatewayIcepay,
		Amount:    amount,
		Currency:  strings.ToUpper(order.Currency),
		State:     model.StateNew,
		TestMode:  s.cfg.TestMode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	// Step 3: Request redirect URL
	returnURL, cancelURL := req.ReturnURL, req.CancelURL
	if returnURL == "" {
		returnURL = s.callbackURL(order.ID, "return")
	}
	if cancelURL == "" {
		cancelURL = s.callbackURL(order.ID, "cancel")
	}

	redirect, err := s.gateway.CreatePaymentURL(ctx, gateway.IcepayPaymentRequest{
		PaymentID:   payment.ID.String(),
		Amount:      amount,
		Currency:    payment.Currency,
		Country:     order.CountryCode,
		Language:    languageCode(req.Language),
		Reference:   order.ID.String(),
		Description: order.ID.String(),
		SuccessURL:  returnURL,
		ErrorURL:    cancelURL,
	})
	if err != nil {
		// Step 4: Undo the speculative payment
		if delErr := s.payments.Delete(ctx, payment.ID); delErr != nil {
			logger.Error("failed to remove payment after initiation failure", delErr)
		}
		logger.Error("icepay initiation failed", err)
		return nil, model.NewGatewayUnavailableError(err)
	}

	logger.Info("checkout started", map[string]interface{}{
		"order_id":   order.ID.String(),
		"payment_id": payment.ID.String(),
		"amount":     amount,
		"currency":   payment.Currency,
	})

	return &model.CheckoutResponse{
		PaymentID:   payment.ID,
		OrderID:     order.ID,
		Gateway:     model.GatewayIcepay,
		Amount:      rounded,
		Currency:    payment.Currency,
		RedirectURL: redirect,
	}, nil
}

func (s *paymentService) callbackURL(orderID uuid.UUID, kind string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return fmt.Sprintf("%s/api/v1/checkout/%s/icepay/%s", base, orderID, kind)
}

// languageCode turns a locale such as "nl-NL" into "NL".
func languageCode(locale string) string {
	primary := strings.FieldsFunc(locale, func(r rune) bool { return r == '-' || r == '_' })
	if len(primary) == 0 {
		return ""
	}
	return strings.ToUpper(primary[0])
}

// =====================================================
// RETURN / CANCEL
// =====================================================

func (s *paymentService) HandleReturn(
	ctx context.Context,
	orderID uuid.UUID,
	params url.Values,
	cancelFlow bool,
) (*model.Outcome, error) {
	result, err := s.gateway.ValidateResult(params, model.ChannelResult)
	if err != nil {
		logger.Warn("invalid icepay return", map[string]interface{}{
			"order_id": orderID.String(),
			"error":    err.Error(),
		})
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return s.returnReconciler.Reconcile(ctx, order, result, cancelFlow)
}

// =====================================================
// POSTBACK
// =====================================================

// HandlePostback processes an ICEPAY postback
//
// Business Logic Flow:
// 1. Log raw postback (audit trail)
// 2. Validate checksum, mark log invalid on failure
// 3. Load order from Reference and reconcile by payment id
// 4. Record the processing result on the log
func (s *paymentService) HandlePostback(ctx context.Context, params url.Values) (*model.Outcome, error) {
	// Step 1: Log raw postback
	entry := &model.PostbackLog{
		ID:         uuid.New(),
		Gateway:    model.GatewayIcepay,
		Body:       flatten(params),
		ReceivedAt: s.clock(),
	}
	if status := params.Get(icepay.ParamStatus); status != "" {
		entry.Status = &status
	}
	if checksum := params.Get(icepay.ParamChecksum); checksum != "" {
		entry.Checksum = &checksum
	}

	if err := s.postbacks.Create(ctx, entry); err != nil {
		// Logging failure must not drop the postback.
		logger.Error("failed to store postback log", err)
		entry = nil
	}

	return s.processPostback(ctx, entry, params)
}

func (s *paymentService) processPostback(ctx context.Context, entry *model.PostbackLog, params url.Values) (*model.Outcome, error) {
	// Step 2: Validate checksum
	result, err := s.gateway.ValidateResult(params, model.ChannelPostback)
	if err != nil {
		s.markInvalid(ctx, entry, err)
		return nil, err
	}

	// Step 3: Load order and reconcile
	outcome, err := s.reconcilePostback(ctx, result)

	// Step 4: Record result
	switch {
	case err == nil, errors.Is(err, model.ErrPaymentFailed):
		// A reported failure is persisted, so the postback is done.
		s.markProcessed(ctx, entry, outcome, result)
	case isRetryable(err):
		s.markError(ctx, entry, err)
	default:
		s.markInvalid(ctx, entry, err)
	}

	return outcome, err
}

func (s *paymentService) reconcilePostback(ctx context.Context, result *model.RemoteResult) (*model.Outcome, error) {
	orderID, err := uuid.Parse(result.Reference)
	if err != nil {
		return nil, model.NewOrderNotFoundError(result.Reference)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return s.postbackReconciler.Reconcile(ctx, order, result, false)
}

func (s *paymentService) markProcessed(ctx context.Context, entry *model.PostbackLog, outcome *model.Outcome, result *model.RemoteResult) {
	if entry == nil {
		return
	}
	var paymentID, orderID *uuid.UUID
	if outcome != nil && outcome.Payment != nil {
		paymentID, orderID = &outcome.Payment.ID, &outcome.Payment.OrderID
	} else if id, err := uuid.Parse(result.PaymentID); err == nil {
		paymentID = &id
	}
	if err := s.postbacks.MarkProcessed(ctx, entry.ID, paymentID, orderID); err != nil {
		logger.Error("failed to mark postback as processed", err)
	}
}

func (s *paymentService) markInvalid(ctx context.Context, entry *model.PostbackLog, cause error) {
	if entry == nil {
		return
	}
	if err := s.postbacks.MarkInvalid(ctx, entry.ID, cause.Error()); err != nil {
		logger.Error("failed to mark postback as invalid", err)
	}
}

func (s *paymentService) markError(ctx context.Context, entry *model.PostbackLog, cause error) {
	if entry == nil {
		return
	}
	if err := s.postbacks.MarkProcessingError(ctx, entry.ID, cause.Error()); err != nil {
		logger.Error("failed to mark postback processing error", err)
	}
}

// isRetryable reports whether replaying the postback later may succeed.
// Domain rejections are final; infrastructure failures are not.
func isRetryable(err error) bool {
	if errors.Is(err, model.ErrConcurrentUpdate) {
		return true
	}
	_, isDomain := model.IsPaymentError(err)
	return !isDomain
}

func flatten(params url.Values) map[string]string {
	body := make(map[string]string, len(params))
	for k := range params {
		body[k] = params.Get(k)
	}
	return body
}

// =====================================================
// ADMIN
// =====================================================

func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewPaymentNotFoundError(paymentID.String())
		}
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListPostbacks(ctx context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error) {
	req.Normalize()
	return s.postbacks.List(ctx, req)
}

// =====================================================
// BACKGROUND JOBS
// =====================================================

// RetryFailedPostbacks replays valid postbacks whose processing failed.
// Replays are safe because stale results reconcile to a no-op.
func (s *paymentService) RetryFailedPostbacks(ctx context.Context, limit int) (model.RetryReport, error) {
	var report model.RetryReport

	entries, err := s.postbacks.GetFailed(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("failed to load failed postbacks: %w", err)
	}

	for _, entry := range entries {
		if !entry.CanRetry() {
			continue
		}
		if err := s.postbacks.IncrementRetryCount(ctx, entry.ID); err != nil {
			logger.Error("failed to increment postback retry count", err)
			continue
		}
		report.Attempted++

		params := url.Values{}
		for k, v := range entry.Body {
			params.Set(k, v)
		}

		if _, err := s.processPostback(ctx, entry, params); err != nil && !errors.Is(err, model.ErrPaymentFailed) {
			logger.Warn("postback retry failed", map[string]interface{}{
				"postback_id": entry.ID.String(),
				"attempt":     entry.RetryCount + 1,
				"error":       err.Error(),
			})
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

func (s *paymentService) loadOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, model.NewOrderNotFoundError(orderID.String())
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}
