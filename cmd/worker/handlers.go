package main

import (
	"github.com/hibiken/asynq"

	paymentJob "icepay-gateway/internal/domains/payment/job"
	"icepay-gateway/internal/shared"
	"icepay-gateway/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	retryPostbacks *paymentJob.RetryPostbacksHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		retryPostbacks: paymentJob.NewRetryPostbacksHandler(c.PaymentService, c.Metrics),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeRetryFailedPostbacks, h.retryPostbacks.ProcessTask)
}
