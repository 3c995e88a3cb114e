package models

import "github.com/shopspring/decimal"

type Vendor struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// MenuItem is a catalog entry as listed on a vendor's menu. Price and
// DiscountPercent describe the catalog at browse time; the cart freezes
// its own effective price when an item is added.
type MenuItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent float64         `json:"discount_percentage,omitempty"`
}

type Car struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Plate string `json:"plate"`
}
