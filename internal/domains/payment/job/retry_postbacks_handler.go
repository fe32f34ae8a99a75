package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"icepay-gateway/internal/domains/payment/service"
	"icepay-gateway/internal/shared"
	"icepay-gateway/pkg/logger"
)

const defaultRetryBatch = 100

type RetryPostbacksPayload struct {
	Limit int `json:"limit"`
}

// RetryRecorder receives the result of each retry run.
type RetryRecorder interface {
	ObservePostbackRetries(attempted, succeeded int)
}

// RetryPostbacksHandler replays postbacks whose processing failed for a
// transient reason. Safe to run concurrently with live postbacks: stale
// replays reconcile to a no-op.
type RetryPostbacksHandler struct {
	paymentService service.PaymentService
	recorder       RetryRecorder
}

func NewRetryPostbacksHandler(paymentService service.PaymentService, recorder RetryRecorder) *RetryPostbacksHandler {
	return &RetryPostbacksHandler{
		paymentService: paymentService,
		recorder:       recorder,
	}
}

func NewRetryPostbacksTask(limit int) (*asynq.Task, error) {
	payload, err := json.Marshal(RetryPostbacksPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(shared.TypeRetryFailedPostbacks, payload), nil
}

func (h *RetryPostbacksHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload RetryPostbacksPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultRetryBatch
	}

	report, err := h.paymentService.RetryFailedPostbacks(ctx, payload.Limit)
	if err != nil {
		return fmt.Errorf("retry failed postbacks: %w", err)
	}

	if h.recorder != nil {
		h.recorder.ObservePostbackRetries(report.Attempted, report.Succeeded)
	}

	logger.Info("Postback retry run finished", map[string]interface{}{
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
	})

	return nil
}
