package models

import "time"

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StatusUpdate is pushed by the server whenever an order's status changes.
type StatusUpdate struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}

// ArrivalNotice is emitted by the client when the customer signals that
// their car is waiting at the pickup zone.
type ArrivalNotice struct {
	VendorID  string    `json:"vendor_id"`
	OrderID   string    `json:"order_id"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// ArrivalAck is pushed back once the restaurant has seen an arrival notice.
type ArrivalAck struct {
	OrderID string `json:"order_id"`
}
