package devserver

import (
	"github.com/shopspring/decimal"

	"github.com/example/carside/pkg/models"
)

// Canned catalog data for development. The production backend owns the real
// catalog; the stub only needs enough to price and label orders.

var catalogVendors = map[string]models.Vendor{
	"v1": {
		ID:        "v1",
		Name:      "Burger Barn",
		Phone:     "+965-222-0101",
		Address:   "Block 4, Salmiya",
		Latitude:  29.3375,
		Longitude: 48.0758,
	},
	"v2": {
		ID:        "v2",
		Name:      "Shawarma House",
		Phone:     "+965-222-0202",
		Address:   "Block 10, Hawally",
		Latitude:  29.3326,
		Longitude: 48.0285,
	},
}

var catalogMenus = map[string]map[string]models.MenuItem{
	"v1": {
		"m1": {ID: "m1", Name: "Classic Burger", Price: decimal.RequireFromString("2.500")},
		"m2": {ID: "m2", Name: "Fries", Price: decimal.RequireFromString("1.000")},
		"m3": {ID: "m3", Name: "Double Burger", Price: decimal.RequireFromString("3.750"), DiscountPercent: 20},
	},
	"v2": {
		"s1": {ID: "s1", Name: "Chicken Shawarma", Price: decimal.RequireFromString("1.750")},
		"s2": {ID: "s2", Name: "Mixed Grill Plate", Price: decimal.RequireFromString("4.250"), DiscountPercent: 10},
	},
}

var catalogCars = []models.Car{
	{ID: "car-1", Model: "Toyota Camry", Plate: "KWT 41352"},
	{ID: "car-2", Model: "Nissan Patrol", Plate: "KWT 90217"},
}

// Vendors lists the canned vendors, for demo clients.
func Vendors() []models.Vendor {
	out := make([]models.Vendor, 0, len(catalogVendors))
	for _, v := range catalogVendors {
		out = append(out, v)
	}
	return out
}

// Menu returns the canned menu for a vendor, or nil.
func Menu(vendorID string) []models.MenuItem {
	menu := catalogMenus[vendorID]
	out := make([]models.MenuItem, 0, len(menu))
	for _, item := range menu {
		out = append(out, item)
	}
	return out
}
