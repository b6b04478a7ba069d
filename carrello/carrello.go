// Package carrello holds the customer's cart: an ordered list of line
// items with merge-by-identity semantics. State is in-memory only and
// scoped to a single session.
package carrello

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ItemType string

const (
	ItemTypePizza    ItemType = "pizza"
	ItemTypeMenuItem ItemType = "menu_item"
)

var (
	ErrIndexOutOfRange = errors.New("line index out of range")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// LineItem is one product configuration plus a quantity. Price is the
// unit price; toppings are kept in first-occurrence order but compared
// as a set when merging.
type LineItem struct {
	ItemID   string   `json:"item_id" validate:"required"`
	ItemType ItemType `json:"item_type" validate:"required,oneof=pizza menu_item"`
	Name     string   `json:"name" validate:"required"`
	Size     string   `json:"size,omitempty"`
	Quantity int      `json:"quantity" validate:"required,min=1"`
	Price    float64  `json:"price" validate:"required,gt=0"`
	Toppings []string `json:"toppings"`
}

// identityKey decides whether two additions are the same configuration:
// same item, same size, same topping set regardless of order.
func (li LineItem) identityKey() string {
	toppings := append([]string(nil), li.Toppings...)
	sort.Strings(toppings)
	return li.ItemID + "\x1f" + li.Size + "\x1f" + strings.Join(toppings, "\x1f")
}

type Cart struct {
	mu    sync.Mutex
	lines []LineItem
}

func New() *Cart {
	return &Cart{}
}

// Add merges the item into an existing line with the same identity key,
// or appends a new line at the end. Existing line order is preserved.
func (c *Cart) Add(item LineItem) error {
	if item.Quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, item.Quantity)
	}
	item.Toppings = dedupeToppings(item.Toppings)

	c.mu.Lock()
	defer c.mu.Unlock()

	key := item.identityKey()
	for i := range c.lines {
		if c.lines[i].identityKey() == key {
			c.lines[i].Quantity += item.Quantity
			return nil
		}
	}
	c.lines = append(c.lines, item)
	return nil
}

// Remove deletes the line at the given position.
func (c *Cart) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(index)
}

func (c *Cart) removeLocked(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// UpdateQuantity sets the quantity of the line at index. A quantity of
// zero or less removes the line; a zero-quantity line is never stored.
func (c *Cart) UpdateQuantity(index, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		return c.removeLocked(index)
	}
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c.lines[index].Quantity = quantity
	return nil
}

// Subtotal is the running sum of unit price times quantity. No rounding
// happens here; callers format at the display or submission boundary.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// Items returns a snapshot copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]LineItem, len(c.lines))
	copy(items, c.lines)
	for i := range items {
		items[i].Toppings = append([]string(nil), c.lines[i].Toppings...)
	}
	return items
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Clear empties the cart. Called on logout and after a successful order
// placement.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

func dedupeToppings(toppings []string) []string {
	if len(toppings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(toppings))
	out := make([]string, 0, len(toppings))
	for _, t := range toppings {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
