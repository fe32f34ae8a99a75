package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"icepay-gateway/internal/domains/payment/model"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveReconcile(model.ChannelPostback, "success", 20*time.Millisecond)
	r.ObserveReconcile(model.ChannelPostback, "success", 10*time.Millisecond)
	r.ObserveReconcile(model.ChannelResult, "noop", time.Millisecond)
	r.IncTransition(model.StateNew, model.StateSuccess)
	r.ObservePostbackRetries(3, 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.reconciles.WithLabelValues("postback", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.reconciles.WithLabelValues("result", "noop")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.transitions.WithLabelValues("new", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.postbackRetries.WithLabelValues("succeeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.postbackRetries.WithLabelValues("failed")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.IncTransition(model.StateOpen, model.StateError)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `icepay_payment_transitions_total{from="open",to="error"} 1`)
}
