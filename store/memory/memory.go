// Package memory provides an in-memory ledger store for testing/dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/acrepoint/sales-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store holds sales and their payments in maps. Payments stay
// append-only: no method removes or rewrites one.
type Store struct {
	mu       sync.RWMutex
	sales    map[ledger.SaleID]ledger.Sale
	payments map[ledger.SaleID][]ledger.Payment
	activity []ActivityEntry
}

// ActivityEntry is one recorded audit line.
type ActivityEntry struct {
	UserID  ledger.UserID
	Action  string
	Details string
}

func New() *Store {
	return &Store{
		sales:    make(map[ledger.SaleID]ledger.Sale),
		payments: make(map[ledger.SaleID][]ledger.Payment),
	}
}

// PutSale seeds or replaces a sale. Test fixture entry point.
func (m *Store) PutSale(sale ledger.Sale) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[sale.ID] = sale
}

func (m *Store) GetSale(_ context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSaleLocked(id)
}

func (m *Store) getSaleLocked(id ledger.SaleID) (*ledger.Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return nil, ledger.ErrSaleNotFound
	}
	return &sale, nil
}

func (m *Store) InsertPayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPaymentLocked(p)
}

func (m *Store) insertPaymentLocked(p ledger.Payment) error {
	m.payments[p.SaleID] = append(m.payments[p.SaleID], p)
	return nil
}

func (m *Store) UpdateSaleBalance(_ context.Context, id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSaleBalanceLocked(id, balance, status)
}

func (m *Store) updateSaleBalanceLocked(id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	sale, ok := m.sales[id]
	if !ok {
		return ledger.ErrSaleNotFound
	}
	sale.Balance = balance
	sale.Status = status
	m.sales[id] = sale
	return nil
}

// PaymentsForSale returns the payments applied to one sale, oldest
// first.
func (m *Store) PaymentsForSale(_ context.Context, id ledger.SaleID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// =============================================================================
// ACTIVITY LOG
// =============================================================================

func (m *Store) LogActivity(_ context.Context, userID ledger.UserID, action, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, ActivityEntry{UserID: userID, Action: action, Details: details})
	return nil
}

// Activity returns a copy of the recorded audit lines.
func (m *Store) Activity() []ActivityEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ActivityEntry{}, m.activity...)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore struct {
	*Store
}

func NewTx() *TxStore {
	return &TxStore{Store: New()}
}

// WithTx executes fn within a transaction.
// For the memory store, this is simulated with a snapshot + rollback on
// error; the lock held across fn gives the same serialization the
// SQLite store provides.
func (tm *TxStore) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxStore) snapshot() memorySnapshot {
	salesCopy := make(map[ledger.SaleID]ledger.Sale, len(tm.sales))
	for k, v := range tm.sales {
		salesCopy[k] = v
	}
	paymentsCopy := make(map[ledger.SaleID][]ledger.Payment, len(tm.payments))
	for k, v := range tm.payments {
		paymentsCopy[k] = append([]ledger.Payment{}, v...)
	}
	return memorySnapshot{sales: salesCopy, payments: paymentsCopy}
}

func (tm *TxStore) restore(s memorySnapshot) {
	tm.sales = s.sales
	tm.payments = s.payments
}

type memorySnapshot struct {
	sales    map[ledger.SaleID]ledger.Sale
	payments map[ledger.SaleID][]ledger.Payment
}

// txView gives WithTx callbacks lock-free access to the parent, which
// already holds the write lock.
type txView struct {
	parent *TxStore
}

func (tv *txView) GetSale(_ context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	return tv.parent.getSaleLocked(id)
}

func (tv *txView) InsertPayment(_ context.Context, p ledger.Payment) error {
	return tv.parent.insertPaymentLocked(p)
}

func (tv *txView) UpdateSaleBalance(_ context.Context, id ledger.SaleID, balance decimal.Decimal, status ledger.SaleStatus) error {
	return tv.parent.updateSaleBalanceLocked(id, balance, status)
}
