package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// IN-MEMORY STORE
// =====================================================

type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	payments map[uuid.UUID]*model.Payment
	orders   map[uuid.UUID]*model.Order

	saveCalls   int
	deleteCalls int
	markerCalls int

	// conflicts makes the next N saves fail as if another writer won.
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[uuid.UUID]*model.Payment),
		orders:   make(map[uuid.UUID]*model.Order),
	}
}

func (s *memStore) addOrder(total, currency string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &model.Order{
		ID:          uuid.New(),
		Total:       decimal.RequireFromString(total),
		Currency:    currency,
		CountryCode: "NL",
	}
	s.orders[o.ID] = o
	cp := *o
	return &cp
}

func (s *memStore) addPayment(order *model.Order, state model.LocalState, remote *model.StatusCode) *model.Payment {
	amount, _ := ToMinorUnits(order.Total, order.Currency)
	p := &model.Payment{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Gateway:      model.GatewayIcepay,
		Amount:       amount,
		Currency:     order.Currency,
		State:        state,
		RemoteStatus: remote,
		Version:      1,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p.Clone()
	return p
}

func (s *memStore) payment(id uuid.UUID) (*model.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (s *memStore) order(id uuid.UUID) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.orders[id]
	return &cp
}

func (s *memStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls + s.deleteCalls + s.markerCalls
}

// =====================================================
// PAYMENT REPOSITORY
// =====================================================

type memPayments struct{ s *memStore }

func (r memPayments) Create(_ context.Context, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.Version = 1
	r.s.payments[p.ID] = p.Clone()
	return nil
}

func (r memPayments) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.s.payment(id)
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	return p, nil
}

func (r memPayments) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memPayments) SaveWithTx(_ context.Context, _ pgx.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.conflicts > 0 {
		r.s.conflicts--
		return model.ErrConcurrentUpdate
	}
	cur, ok := r.s.payments[p.ID]
	if !ok || cur.Version != p.Version {
		return model.ErrConcurrentUpdate
	}
	p.Version++
	r.s.payments[p.ID] = p.Clone()
	r.s.saveCalls++
	return nil
}

func (r memPayments) DeleteNewWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, version int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.payments[id]
	if !ok || cur.Version != version || cur.State != model.StateNew {
		return model.ErrConcurrentUpdate
	}
	delete(r.s.payments, id)
	r.s.deleteCalls++
	return nil
}

func (r memPayments) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.payments[id]
	if !ok || cur.State != model.StateNew {
		return model.ErrPaymentNotRemovable
	}
	delete(r.s.payments, id)
	r.s.deleteCalls++
	return nil
}

// =====================================================
// ORDER REPOSITORY
// =====================================================

type memOrders struct{ s *memStore }

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r memOrders) UpdateRemoteStatusWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, from *model.StatusCode, to model.StatusCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	if (o.RemoteStatus == nil) != (from == nil) || (from != nil && *o.RemoteStatus != *from) {
		return model.ErrConcurrentUpdate
	}
	o.RemoteStatus = &to
	r.s.markerCalls++
	return nil
}

// =====================================================
// TRANSACTION MANAGER
// =====================================================

// memTx serialises transactions and restores a snapshot when fn fails.
type memTx struct{ s *memStore }

func (m memTx) RunInTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	payments := make(map[uuid.UUID]*model.Payment, len(m.s.payments))
	for k, v := range m.s.payments {
		payments[k] = v.Clone()
	}
	orders := make(map[uuid.UUID]*model.Order, len(m.s.orders))
	for k, v := range m.s.orders {
		cp := *v
		orders[k] = &cp
	}
	m.s.mu.Unlock()

	if err := fn(nil); err != nil {
		m.s.mu.Lock()
		m.s.payments = payments
		m.s.orders = orders
		m.s.mu.Unlock()
		return err
	}
	return nil
}

// =====================================================
// LOCKER / PUBLISHER / METRICS
// =====================================================

type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []model.StatusChangedEvent
}

func (p *memPublisher) PublishStatusChanged(_ context.Context, e model.StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type memMetrics struct {
	mu          sync.Mutex
	outcomes    map[string]int
	transitions int
}

func newMemMetrics() *memMetrics {
	return &memMetrics{outcomes: make(map[string]int)}
}

func (m *memMetrics) ObserveReconcile(_ model.Channel, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *memMetrics) IncTransition(_, _ model.LocalState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
}

// =====================================================
// POSTBACK LOG REPOSITORY
// =====================================================

type memPostbacks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.PostbackLog
}

func newMemPostbacks() *memPostbacks {
	return &memPostbacks{entries: make(map[uuid.UUID]*model.PostbackLog)}
}

func (r *memPostbacks) Create(_ context.Context, l *model.PostbackLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.entries[l.ID] = &cp
	return nil
}

func (r *memPostbacks) GetByID(_ context.Context, id uuid.UUID) (*model.PostbackLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.entries[id]
	return &cp, nil
}

func (r *memPostbacks) MarkProcessed(_ context.Context, id uuid.UUID, paymentID, orderID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	e.MarkAsProcessed()
	if paymentID != nil {
		e.PaymentID = paymentID
	}
	if orderID != nil {
		e.OrderID = orderID
	}
	return nil
}

func (r *memPostbacks) MarkInvalid(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id].MarkAsInvalid(reason)
	return nil
}

func (r *memPostbacks) MarkProcessingError(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	valid := true
	r.entries[id].IsValid = &valid
	r.entries[id].ProcessingError = &errMsg
	return nil
}

func (r *memPostbacks) GetFailed(_ context.Context, limit int) ([]*model.PostbackLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PostbackLog
	for _, e := range r.entries {
		if e.CanRetry() && e.ProcessingError != nil && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPostbacks) IncrementRetryCount(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id].RetryCount++
	return nil
}

func (r *memPostbacks) List(_ context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PostbackLog
	for _, e := range r.entries {
		if req.Failed && e.IsProcessed {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memPostbacks) only() *model.PostbackLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		cp := *e
		return &cp
	}
	return nil
}

// =====================================================
// HELPERS
// =====================================================

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store     *memStore
	publisher *memPublisher
	metrics   *memMetrics
	deps      ReconcilerDeps
}

func newHarness() *harness {
	store := newMemStore()
	publisher := &memPublisher{}
	metrics := newMemMetrics()
	return &harness{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		deps: ReconcilerDeps{
			Payments:     memPayments{store},
			Orders:       memOrders{store},
			TxManager:    memTx{store},
			Locker:       newMemLocker(),
			Publisher:    publisher,
			Metrics:      metrics,
			Clock:        func() time.Time { return fixedNow },
			Logger:       zerolog.Nop(),
			GatewayLabel: "ICEPAY",
		},
	}
}

func (h *harness) byID() *Reconciler {
	return NewReconciler(h.deps, NewByIDResolver(h.deps.Payments, model.GatewayIcepay))
}

func (h *harness) byScan() *Reconciler {
	return NewReconciler(h.deps, NewOrderScanResolver(h.deps.Payments, model.GatewayIcepay))
}

func statusPtr(s model.StatusCode) *model.StatusCode { return &s }

// postback builds a validated postback result for p.
func postback(p *model.Payment, status model.StatusCode) *model.RemoteResult {
	return &model.RemoteResult{
		Channel:            model.ChannelPostback,
		MerchantID:         "10000",
		Status:             status,
		StatusText:         "status " + string(status),
		PaymentID:          p.ID.String(),
		ProcessorPaymentID: "ICP-" + p.ID.String()[:8],
		Reference:          p.OrderID.String(),
		TransactionID:      "TX-1",
		Amount:             p.Amount,
		HasAmount:          true,
		Currency:           p.Currency,
	}
}

// browserReturn builds a validated result-page result for p.
func browserReturn(p *model.Payment, status model.StatusCode) *model.RemoteResult {
	r := postback(p, status)
	r.Channel = model.ChannelResult
	r.Amount = 0
	r.HasAmount = false
	r.Currency = ""
	return r
}
