package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/ledgerrecon/internal/domain"
)

// MockOwnerRepository is an in-memory OwnerRepository with real compare-and-swap semantics.
type MockOwnerRepository struct {
	mu     sync.RWMutex
	owners map[string]*domain.Owner
	writes int

	GetByIDFunc               func(ctx context.Context, id string) (*domain.Owner, error)
	ListFunc                  func(ctx context.Context, filter domain.OwnerFilter, limit int) ([]*domain.Owner, error)
	CompareAndSwapBalanceFunc func(ctx context.Context, id string, expectedVersion int64, snapshot domain.AccountBalanceSnapshot, at time.Time) (int64, error)
}

func NewMockOwnerRepository(owners ...*domain.Owner) *MockOwnerRepository {
	m := &MockOwnerRepository{owners: make(map[string]*domain.Owner)}
	for _, o := range owners {
		m.Put(o)
	}
	return m
}

// Put stores a copy of owner.
func (m *MockOwnerRepository) Put(owner *domain.Owner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *owner
	m.owners[owner.ID] = &cp
}

// Writes returns how many successful balance writes happened.
func (m *MockOwnerRepository) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MockOwnerRepository) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.owners[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrOwnerNotFound
}

func (m *MockOwnerRepository) List(ctx context.Context, filter domain.OwnerFilter, limit int) ([]*domain.Owner, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.owners))
	for id := range m.owners {
		if id > filter.AfterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []*domain.Owner
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		cp := *m.owners[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockOwnerRepository) CompareAndSwapBalance(ctx context.Context, id string, expectedVersion int64, snapshot domain.AccountBalanceSnapshot, at time.Time) (int64, error) {
	if m.CompareAndSwapBalanceFunc != nil {
		return m.CompareAndSwapBalanceFunc(ctx, id, expectedVersion, snapshot, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.owners[id]
	if !ok {
		return 0, domain.ErrOwnerNotFound
	}
	if o.Version != expectedVersion {
		return 0, domain.ErrConcurrentUpdate
	}
	o.Balance = snapshot
	o.Version++
	o.UpdatedAt = at
	m.writes++
	return o.Version, nil
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository.
type MockLedgerEntryRepository struct {
	mu      sync.RWMutex
	entries map[string][]*domain.LedgerEntry

	ListByOwnerFunc func(ctx context.Context, ownerID string) ([]*domain.LedgerEntry, error)
}

func NewMockLedgerEntryRepository() *MockLedgerEntryRepository {
	return &MockLedgerEntryRepository{entries: make(map[string][]*domain.LedgerEntry)}
}

// Add appends entries to their owners' logs.
func (m *MockLedgerEntryRepository) Add(entries ...*domain.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.OwnerID] = append(m.entries[e.OwnerID], e)
	}
}

func (m *MockLedgerEntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.LedgerEntry, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.LedgerEntry(nil), m.entries[ownerID]...), nil
}

// MockTransactionRepository filters a fixed transaction list in memory.
type MockTransactionRepository struct {
	Transactions []*domain.Transaction

	FindFunc func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

func NewMockTransactionRepository(txns ...*domain.Transaction) *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: txns}
}

func (m *MockTransactionRepository) Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, filter)
	}
	var out []*domain.Transaction
	for _, t := range m.Transactions {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// MockSalesOrderRepository is a mock implementation of SalesOrderRepository.
type MockSalesOrderRepository struct {
	Orders []*domain.SalesOrder

	ListConfirmedFunc func(ctx context.Context, period domain.Period) ([]*domain.SalesOrder, error)
}

func (m *MockSalesOrderRepository) ListConfirmed(ctx context.Context, period domain.Period) ([]*domain.SalesOrder, error) {
	if m.ListConfirmedFunc != nil {
		return m.ListConfirmedFunc(ctx, period)
	}
	var out []*domain.SalesOrder
	for _, o := range m.Orders {
		if o.Status == domain.SalesOrderConfirmed && period.Contains(o.ConfirmedAt) {
			out = append(out, o)
		}
	}
	return out, nil
}

// MockInventoryRepository is a mock implementation of InventoryRepository.
type MockInventoryRepository struct {
	Stock []domain.StockItem

	CurrentStockFunc func(ctx context.Context) ([]domain.StockItem, error)
}

func (m *MockInventoryRepository) CurrentStock(ctx context.Context) ([]domain.StockItem, error) {
	if m.CurrentStockFunc != nil {
		return m.CurrentStockFunc(ctx)
	}
	return m.Stock, nil
}

// MockStatementRepository keeps statements and budgets keyed by period start.
type MockStatementRepository struct {
	mu         sync.RWMutex
	statements map[string]*domain.PLStatement
	budgets    map[string]*domain.StatementTotals

	SaveFunc func(ctx context.Context, statement *domain.PLStatement) error
}

func NewMockStatementRepository() *MockStatementRepository {
	return &MockStatementRepository{
		statements: make(map[string]*domain.PLStatement),
		budgets:    make(map[string]*domain.StatementTotals),
	}
}

func periodKey(p domain.Period) string {
	return p.Start.UTC().Format(time.RFC3339Nano) + "/" + p.End.UTC().Format(time.RFC3339Nano)
}

// PutBudget stores budget totals for period.
func (m *MockStatementRepository) PutBudget(period domain.Period, totals domain.StatementTotals) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[periodKey(period)] = &totals
}

func (m *MockStatementRepository) Save(ctx context.Context, statement *domain.PLStatement) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, statement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements[statement.ID] = statement
	m.statements[periodKey(statement.Period)] = statement
	return nil
}

func (m *MockStatementRepository) GetByID(ctx context.Context, id string) (*domain.PLStatement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.statements[id]; ok {
		return s, nil
	}
	return nil, domain.ErrStatementNotFound
}

func (m *MockStatementRepository) FindByPeriod(ctx context.Context, period domain.Period) (*domain.PLStatement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.statements[periodKey(period)]; ok {
		return s, nil
	}
	return nil, domain.ErrStatementNotFound
}

func (m *MockStatementRepository) FindBudget(ctx context.Context, period domain.Period) (*domain.StatementTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.budgets[periodKey(period)]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("budget %w", domain.ErrNotFound)
}

// MockRuleSetProvider serves a fixed rule set.
type MockRuleSetProvider struct {
	Rules           *domain.RuleSet
	ChartOfAccounts domain.ChartOfAccounts
	Err             error
}

func NewMockRuleSetProvider() *MockRuleSetProvider {
	return &MockRuleSetProvider{
		Rules:           domain.DefaultRuleSet(),
		ChartOfAccounts: domain.DefaultChartOfAccounts(),
	}
}

func (m *MockRuleSetProvider) Classifier() (*domain.Classifier, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return domain.NewClassifier(m.Rules)
}

func (m *MockRuleSetProvider) Chart() domain.ChartOfAccounts {
	return m.ChartOfAccounts
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns every stored event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

func (m *MockOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string][]byte)}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.keys[key]; ok {
		return true, v, nil
	}
	m.keys[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = response
	return nil
}
