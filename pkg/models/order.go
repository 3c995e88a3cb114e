package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCooking   OrderStatus = "COOKING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further status changes are expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TimelineIndex returns the position of s on the 4-step pickup timeline
// (PENDING=0 .. COMPLETED=3). CANCELLED and unknown statuses return -1;
// they are rendered outside the timeline.
func (s OrderStatus) TimelineIndex() int {
	switch s {
	case StatusPending:
		return 0
	case StatusCooking:
		return 1
	case StatusReady:
		return 2
	case StatusCompleted:
		return 3
	default:
		return -1
	}
}

// Order is the client-side read replica of a server-owned order. The server
// is the single source of truth; the client never transitions Status itself.
type Order struct {
	ID              string          `json:"id"`
	Status          OrderStatus     `json:"status"`
	VendorID        string          `json:"vendor_id"`
	VendorName      string          `json:"vendor_name"`
	VendorPhone     string          `json:"vendor_phone,omitempty"`
	VendorAddress   string          `json:"vendor_address,omitempty"`
	VendorLatitude  *float64        `json:"vendor_latitude,omitempty"`
	VendorLongitude *float64        `json:"vendor_longitude,omitempty"`
	CarModel        string          `json:"car_model"`
	CarPlate        string          `json:"car_plate"`
	CustomerNote    string          `json:"customer_note,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	CreatedAt       time.Time       `json:"created_at"`
	Rating          *int            `json:"rating,omitempty"`
}

// PlaceOrderRequest is the order placement payload.
type PlaceOrderRequest struct {
	VendorID      string             `json:"vendor_id"`
	CarID         string             `json:"car_id"`
	PaymentMethod string             `json:"payment_method"`
	Items         []PlaceOrderItem   `json:"items"`
	CustomerNote  string             `json:"customer_note,omitempty"`
	PickupTime    time.Time          `json:"pickup_time"`
}

type PlaceOrderItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}
