package tests

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"orderpay/internal/domain"
	"orderpay/internal/gateway"
	"orderpay/internal/redis"
	"orderpay/internal/repository"
	"orderpay/internal/service"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount       int32
	UpdateCallCount       int32
	ReplaceItemsCallCount int32
	LockCallCount         int32
	SoftDeleteCallCount   int32

	// Error injection
	CreateError       error
	UpdateError       error
	ReplaceItemsError error
	SoftDeleteError   error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return fmt.Errorf("duplicate order %s", order.ID)
	}
	stored := cloneOrder(order)
	stored.Items = nil
	m.orders[order.ID] = stored
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok || order.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	atomic.AddInt32(&m.LockCallCount, 1)
	return m.GetByID(ctx, id)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Order
	for _, o := range m.orders {
		if o.IsDeleted() {
			continue
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	slices.SortFunc(result, func(a, b *domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok || stored.IsDeleted() {
		return repository.ErrNotFound
	}
	stored.Status = order.Status
	stored.Total = order.Total
	stored.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *MockOrderRepository) ReplaceItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	atomic.AddInt32(&m.ReplaceItemsCallCount, 1)
	if m.ReplaceItemsError != nil {
		return m.ReplaceItemsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Items = slices.Clone(items)
	return nil
}

func (m *MockOrderRepository) SoftDelete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.SoftDeleteCallCount, 1)
	if m.SoftDeleteError != nil {
		return m.SoftDeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok || stored.IsDeleted() {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	stored.DeletedAt = &now
	return nil
}

// GetOrder returns the stored order, deleted or not, for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

// CountOrders returns the number of stored orders, including deleted ones.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MockOrderRepository) snapshot() map[string]*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		snap[id] = cloneOrder(o)
	}
	return snap
}

func (m *MockOrderRepository) restore(snap map[string]*domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = snap
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	order    []string

	// owners resolves order IDs to user IDs for user filters.
	owners *MockOrderRepository

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	ListError   error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[payment.ID]; !exists {
		m.order = append(m.order, payment.ID)
	}
	m.payments[payment.ID] = clonePayment(payment)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[payment.ID]; exists {
		return fmt.Errorf("duplicate payment %s", payment.ID)
	}
	m.payments[payment.ID] = clonePayment(payment)
	m.order = append(m.order, payment.ID)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	m.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (m *MockPaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, id := range m.order {
		if p := m.payments[id]; p.OrderID == orderID {
			result = append(result, clonePayment(p))
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) CountByOrderID(ctx context.Context, orderID string) (int, error) {
	payments, err := m.ListByOrderID(ctx, orderID)
	return len(payments), err
}

func (m *MockPaymentRepository) List(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.payments[m.order[i]]
		if filter.OrderID != "" && p.OrderID != filter.OrderID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.UserID != "" {
			if m.owners == nil {
				continue
			}
			if o := m.owners.GetOrder(p.OrderID); o == nil || o.UserID != filter.UserID {
				continue
			}
		}
		result = append(result, clonePayment(p))
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return clonePayment(p)
	}
	return nil
}

// CountPayments returns the number of stored payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

type paymentSnapshot struct {
	payments map[string]*domain.Payment
	order    []string
}

func (m *MockPaymentRepository) snapshot() paymentSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := paymentSnapshot{
		payments: make(map[string]*domain.Payment, len(m.payments)),
		order:    slices.Clone(m.order),
	}
	for id, p := range m.payments {
		snap.payments[id] = clonePayment(p)
	}
	return snap
}

func (m *MockPaymentRepository) restore(snap paymentSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = snap.payments
	m.order = snap.order
}

// ──────────────────────────────────────────────
// MOCK STORE / TRANSACTOR
// ──────────────────────────────────────────────

// MockStore backs both repositories and runs transactions against them.
// A transaction that returns an error or panics restores the state it started
// from, and so does one whose context is cancelled before commit, as with
// database/sql. Transactions are serialized.
type MockStore struct {
	txMu sync.Mutex

	OrderRepo   *MockOrderRepository
	PaymentRepo *MockPaymentRepository

	// Counters for verification
	TxCallCount       int32
	CommitCallCount   int32
	RollbackCallCount int32

	// Error injection
	BeginError  error
	CommitError error
}

// NewMockStore creates a store with empty repositories.
func NewMockStore() *MockStore {
	orders := NewMockOrderRepository()
	payments := NewMockPaymentRepository()
	payments.owners = orders
	return &MockStore{
		OrderRepo:   orders,
		PaymentRepo: payments,
	}
}

type mockTxStore struct {
	s *MockStore
}

func (t mockTxStore) Orders() repository.OrderRepository     { return t.s.OrderRepo }
func (t mockTxStore) Payments() repository.PaymentRepository { return t.s.PaymentRepo }

func (s *MockStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) (err error) {
	atomic.AddInt32(&s.TxCallCount, 1)
	if s.BeginError != nil {
		return s.BeginError
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	orders := s.OrderRepo.snapshot()
	payments := s.PaymentRepo.snapshot()
	rollback := func() {
		s.OrderRepo.restore(orders)
		s.PaymentRepo.restore(payments)
		atomic.AddInt32(&s.RollbackCallCount, 1)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, mockTxStore{s: s}); err != nil {
		rollback()
		return err
	}
	if s.CommitError != nil {
		rollback()
		return s.CommitError
	}
	if err := ctx.Err(); err != nil {
		rollback()
		return err
	}

	atomic.AddInt32(&s.CommitCallCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a configurable gateway.Gateway.
type MockGateway struct {
	GatewayName  string
	Unconfigured bool

	// ProcessFunc defaults to approving. A nil RefundFunc means the gateway
	// has no refund support.
	ProcessFunc func(ctx context.Context, payment *domain.Payment) *gateway.Result
	RefundFunc  func(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *gateway.Result

	// Counters for verification
	ProcessCallCount int32
	RefundCallCount  int32

	mu               sync.Mutex
	lastRefundAmount *decimal.Decimal
}

// NewMockGateway creates a configured gateway that approves charges and refunds.
func NewMockGateway(name string) *MockGateway {
	g := &MockGateway{GatewayName: name}
	g.RefundFunc = func(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *gateway.Result {
		return gateway.Success("Mock refund approved", name+"_refund_"+payment.ID, nil)
	}
	return g
}

func (g *MockGateway) Name() string { return g.GatewayName }

func (g *MockGateway) IsConfigured() bool { return !g.Unconfigured }

func (g *MockGateway) ProcessPayment(ctx context.Context, payment *domain.Payment) *gateway.Result {
	atomic.AddInt32(&g.ProcessCallCount, 1)
	if g.ProcessFunc != nil {
		return g.ProcessFunc(ctx, payment)
	}
	return gateway.Success("Mock payment approved", g.GatewayName+"_tx_"+payment.ID, map[string]any{
		"status": "approved",
	})
}

func (g *MockGateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) *gateway.Result {
	atomic.AddInt32(&g.RefundCallCount, 1)
	g.mu.Lock()
	g.lastRefundAmount = amount
	g.mu.Unlock()
	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, payment, amount)
	}
	return gateway.RefundNotImplemented(g.GatewayName)
}

// LastRefundAmount returns the amount passed to the latest Refund call.
func (g *MockGateway) LastRefundAmount() *decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRefundAmount
}

// Factory returns a registry factory that always yields g.
func (g *MockGateway) Factory() gateway.Factory {
	return func(ctx context.Context) (gateway.Gateway, error) {
		return g, nil
	}
}

// NewRegistryWith registers each gateway under its own name.
func NewRegistryWith(gateways ...*MockGateway) *gateway.Registry {
	r := gateway.NewRegistry()
	for _, g := range gateways {
		r.Register(g.GatewayName, g.Factory())
	}
	return r
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of redis.LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string
	seq   int

	AcquireCallCount int32
	ReleaseCallCount int32

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireOrderPaymentLock(ctx context.Context, orderID string, ttl time.Duration) (string, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[orderID]; held {
		return "", nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[orderID] = token
	return token, nil
}

func (m *MockLockStore) ReleaseOrderPaymentLock(ctx context.Context, orderID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[orderID] != token {
		return redis.ErrLockNotHeld
	}
	delete(m.locks, orderID)
	return nil
}

// Hold takes the lock of an order as another client would.
func (m *MockLockStore) Hold(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[orderID] = "held-elsewhere"
}

// IsHeld reports whether the lock of an order is taken.
func (m *MockLockStore) IsHeld(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[orderID]
	return held
}

// MockCacheStore is a mock implementation of redis.CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.Mutex
	listing *redis.GatewayListing

	GetCallCount int32
	SetCallCount int32

	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{}
}

func (m *MockCacheStore) GetGatewayListing(ctx context.Context) (*redis.GatewayListing, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listing == nil {
		return nil, nil
	}
	copy := *m.listing
	return &copy, nil
}

func (m *MockCacheStore) SetGatewayListing(ctx context.Context, listing *redis.GatewayListing) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *listing
	m.listing = &copy
	return nil
}

func (m *MockCacheStore) InvalidateGatewayListing(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listing = nil
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records notifications.
type MockNotifier struct {
	mu   sync.Mutex
	sent []service.Notification

	NotifyError error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, notification service.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification)
	return m.NotifyError
}

// Sent returns the notifications received so far.
func (m *MockNotifier) Sent() []service.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

// NewConfirmedOrder builds a confirmed order with the given items, stored in repo.
func NewConfirmedOrder(repo *MockOrderRepository, id, userID string, items ...domain.OrderItem) *domain.Order {
	order := domain.NewOrder(id, userID, time.Now().UTC())
	order.SetItems(items)
	order.Status = domain.OrderStatusConfirmed
	repo.AddOrder(order)
	return order
}

// Item builds an order item from a decimal string price.
func Item(name string, quantity int, price string) domain.OrderItem {
	return domain.OrderItem{
		ProductName: name,
		Quantity:    quantity,
		Price:       decimal.RequireFromString(price),
	}
}

// Dec parses a decimal string.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr parses a decimal string and returns a pointer to it.
func DecPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if o.DeletedAt != nil {
		t := *o.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	c.GatewayResponse = maps.Clone(p.GatewayResponse)
	if p.TransactionID != nil {
		id := *p.TransactionID
		c.TransactionID = &id
	}
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Ensure mocks implement interfaces.
var (
	_ repository.OrderRepository   = (*MockOrderRepository)(nil)
	_ repository.PaymentRepository = (*MockPaymentRepository)(nil)
	_ repository.Transactor        = (*MockStore)(nil)
	_ gateway.Gateway              = (*MockGateway)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface    = (*MockCacheStore)(nil)
	_ service.Notifier             = (*MockNotifier)(nil)
)
