// Package cart maintains the in-memory cart for the active session. A cart
// holds lines for exactly one vendor at a time; crossing vendors is an
// explicit user decision, never a silent merge.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/carside/pkg/models"
)

// priceScale is the display precision for prices (currency minor units).
const priceScale = 3

// Line is one product in the active cart. EffectiveUnitPrice is a snapshot
// taken when the item was added; later catalog price changes never reprice
// an existing line.
type Line struct {
	ItemID             string
	Name               string
	UnitPriceOriginal  decimal.Decimal
	DiscountPercent    float64
	EffectiveUnitPrice decimal.Decimal
	Quantity           int
}

type Totals struct {
	TotalItems int
	TotalPrice decimal.Decimal
}

// Store is the single cart for the session. All operations are atomic; the
// store performs no I/O and no operation fails for valid-shaped input.
type Store struct {
	mu     sync.Mutex
	lines  []Line
	vendor *models.Vendor
}

func NewStore() *Store {
	return &Store{}
}

// AddItem puts one unit of item into the cart. If the cart is empty or
// already belongs to vendor, the returned conflict is nil and the cart is
// updated in place. If the cart belongs to a different vendor, nothing is
// mutated and a VendorConflict is returned; the caller must resolve it.
func (s *Store) AddItem(item models.MenuItem, vendor models.Vendor) *VendorConflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vendor != nil && s.vendor.ID != vendor.ID {
		return &VendorConflict{
			CurrentVendor: *s.vendor,
			NewVendor:     vendor,
			store:         s,
			item:          item,
		}
	}

	s.addLocked(item, vendor)
	return nil
}

func (s *Store) addLocked(item models.MenuItem, vendor models.Vendor) {
	v := vendor
	s.vendor = &v

	for i := range s.lines {
		if s.lines[i].ItemID == item.ID {
			s.lines[i].Quantity++
			return
		}
	}

	s.lines = append(s.lines, Line{
		ItemID:             item.ID,
		Name:               item.Name,
		UnitPriceOriginal:  item.Price,
		DiscountPercent:    item.DiscountPercent,
		EffectiveUnitPrice: effectivePrice(item),
		Quantity:           1,
	})
}

// RemoveItem deletes the line for itemID. Unknown ids are a no-op.
func (s *Store) RemoveItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}
	if len(s.lines) == 0 {
		s.vendor = nil
	}
}

// UpdateQuantity adjusts the quantity of itemID by delta (any signed
// value). A quantity dropping to zero or below removes the line. Unknown
// ids are a no-op. No upper bound is enforced here; inventory limits are a
// server concern.
func (s *Store) UpdateQuantity(itemID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			if s.lines[i].Quantity+delta <= 0 {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
			} else {
				s.lines[i].Quantity += delta
			}
			break
		}
	}
	if len(s.lines) == 0 {
		s.vendor = nil
	}
}

// Clear empties the cart unconditionally. Confirmation, if any, is a view
// concern.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.vendor = nil
}

// Lines returns the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Vendor returns the cart's vendor, or nil for an empty cart.
func (s *Store) Vendor() *models.Vendor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vendor == nil {
		return nil
	}
	v := *s.vendor
	return &v
}

// Totals recomputes item and price totals from the current lines on every
// call; nothing is cached.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Totals{TotalPrice: decimal.Zero}
	for _, l := range s.lines {
		t.TotalItems += l.Quantity
		t.TotalPrice = t.TotalPrice.Add(l.EffectiveUnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return t
}

// OrderItems converts the cart lines into the order placement shape.
func (s *Store) OrderItems() []models.PlaceOrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.PlaceOrderItem, 0, len(s.lines))
	for _, l := range s.lines {
		items = append(items, models.PlaceOrderItem{MenuItemID: l.ItemID, Quantity: l.Quantity})
	}
	return items
}

func effectivePrice(item models.MenuItem) decimal.Decimal {
	if item.DiscountPercent <= 0 {
		return item.Price.Round(priceScale)
	}
	discount := item.Price.
		Mul(decimal.NewFromFloat(item.DiscountPercent)).
		Div(decimal.NewFromInt(100))
	return item.Price.Sub(discount).Round(priceScale)
}
