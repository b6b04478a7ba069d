package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/taldoflemis/trattoria/cucina"
)

var (
	ErrUnknownOrder   = errors.New("order not on the board")
	ErrUpdateInFlight = errors.New("another update for this order is in flight")
)

// TransitionError reports a move the status table forbids, carrying
// the status the board actually held at decision time.
type TransitionError struct {
	From cucina.OrderStatus
	To   cucina.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// AdminBoard is the admin panel's working copy of the kitchen's order
// list. Status updates are applied here first and confirmed or reverted
// once the kitchen answers, so the panel never shows a state the
// kitchen rejected.
type AdminBoard struct {
	mu     sync.RWMutex
	orders map[string]cucina.Order
	ids    []string
	staged map[string]cucina.OrderStatus
}

func NewAdminBoard() *AdminBoard {
	return &AdminBoard{
		orders: make(map[string]cucina.Order),
		staged: make(map[string]cucina.OrderStatus),
	}
}

// ReplaceAll swaps in a fresh kitchen snapshot, preserving its order.
// Staged updates are dropped; the snapshot is newer than anything held.
func (b *AdminBoard) ReplaceAll(orders []cucina.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = make(map[string]cucina.Order, len(orders))
	b.ids = b.ids[:0]
	for _, order := range orders {
		b.orders[order.ID] = order
		b.ids = append(b.ids, order.ID)
	}
	b.staged = make(map[string]cucina.OrderStatus)
}

func (b *AdminBoard) Get(id string) (cucina.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[id]
	return order, ok
}

// Snapshot returns the orders in the kitchen's listing order.
func (b *AdminBoard) Snapshot() []cucina.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	orders := make([]cucina.Order, 0, len(b.ids))
	for _, id := range b.ids {
		orders = append(orders, b.orders[id])
	}
	return orders
}

// BeginUpdate applies the new status optimistically and stashes the
// previous one. The transition check happens here, under the lock, so
// a competing update confirmed in the meantime cannot slip a stale
// from-status past it.
func (b *AdminBoard) BeginUpdate(id string, next cucina.OrderStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	if _, inFlight := b.staged[id]; inFlight {
		return ErrUpdateInFlight
	}
	if !order.Status.CanTransition(next) {
		return &TransitionError{From: order.Status, To: next}
	}

	b.staged[id] = order.Status
	order.Status = next
	b.orders[id] = order
	return nil
}

// Confirm drops the stashed status; the optimistic value is now truth.
func (b *AdminBoard) Confirm(id string) {
	b.mu.Lock()
	delete(b.staged, id)
	b.mu.Unlock()
}

// Revert restores the stashed status after a rejected update.
func (b *AdminBoard) Revert(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.staged[id]
	if !ok {
		return
	}
	delete(b.staged, id)

	order, ok := b.orders[id]
	if !ok {
		return
	}
	order.Status = prev
	b.orders[id] = order
}
