package cart

import "github.com/example/carside/pkg/models"

// Resolution is the user's answer to a vendor conflict. There are exactly
// two outcomes; merging carts across vendors is not one of them.
type Resolution int

const (
	// KeepCurrent keeps the existing cart and drops the new item.
	KeepCurrent Resolution = iota
	// ReplaceCart discards the cart and starts over with the new item.
	ReplaceCart
)

// VendorConflict is returned by AddItem when the new item belongs to a
// different vendor than the cart. It is a decision point, not an error: the
// cart stays untouched until Resolve is called. Resolve is one-shot; later
// calls are no-ops.
type VendorConflict struct {
	CurrentVendor models.Vendor
	NewVendor     models.Vendor

	store    *Store
	item     models.MenuItem
	resolved bool
}

func (c *VendorConflict) Resolve(choice Resolution) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.resolved {
		return
	}
	c.resolved = true

	if choice != ReplaceCart {
		return
	}

	c.store.lines = nil
	c.store.vendor = nil
	c.store.addLocked(c.item, c.NewVendor)
}
