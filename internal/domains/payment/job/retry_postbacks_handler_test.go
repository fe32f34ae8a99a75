package job

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icepay-gateway/internal/domains/payment/model"
	"icepay-gateway/internal/domains/payment/service"
	"icepay-gateway/internal/shared"
)

type retryingService struct {
	service.PaymentService

	gotLimit int
	report   model.RetryReport
	err      error
}

func (s *retryingService) RetryFailedPostbacks(_ context.Context, limit int) (model.RetryReport, error) {
	s.gotLimit = limit
	return s.report, s.err
}

type recorded struct {
	attempted, succeeded int
	calls                int
}

func (r *recorded) ObservePostbackRetries(attempted, succeeded int) {
	r.attempted, r.succeeded = attempted, succeeded
	r.calls++
}

func TestNewRetryPostbacksTask(t *testing.T) {
	task, err := NewRetryPostbacksTask(25)
	require.NoError(t, err)
	assert.Equal(t, shared.TypeRetryFailedPostbacks, task.Type())
	assert.JSONEq(t, `{"limit":25}`, string(task.Payload()))
}

func TestRetryPostbacksHandler_ProcessTask(t *testing.T) {
	svc := &retryingService{report: model.RetryReport{Attempted: 3, Succeeded: 2}}
	rec := &recorded{}
	h := NewRetryPostbacksHandler(svc, rec)

	task, err := NewRetryPostbacksTask(25)
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, 25, svc.gotLimit)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 3, rec.attempted)
	assert.Equal(t, 2, rec.succeeded)
}

func TestRetryPostbacksHandler_DefaultLimit(t *testing.T) {
	svc := &retryingService{}
	h := NewRetryPostbacksHandler(svc, nil)

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeRetryFailedPostbacks, nil)))
	assert.Equal(t, defaultRetryBatch, svc.gotLimit)
}

func TestRetryPostbacksHandler_Errors(t *testing.T) {
	t.Run("bad payload is not retried", func(t *testing.T) {
		h := NewRetryPostbacksHandler(&retryingService{}, nil)

		err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeRetryFailedPostbacks, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("service failure is returned", func(t *testing.T) {
		rec := &recorded{}
		h := NewRetryPostbacksHandler(&retryingService{err: errors.New("db down")}, rec)

		task, _ := NewRetryPostbacksTask(10)
		err := h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		assert.Zero(t, rec.calls)
	})
}
