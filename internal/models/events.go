package models

import "time"

// Event types
const (
	EventTypeOrderFulfilled = "ORDER_FULFILLED"
	EventTypeOrderRejected  = "ORDER_REJECTED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderFulfilledEvent published when an item is dispensed
type OrderFulfilledEvent struct {
	BaseEvent
	ItemID        int64          `json:"item_id"`
	ItemName      string         `json:"item_name"`
	Price         int64          `json:"price"`
	InsertedTotal int64          `json:"inserted_total"`
	ChangeTotal   int64          `json:"change_total"`
	ReturnedCoins map[string]int `json:"returned_coins,omitempty"`
	PartialChange bool           `json:"partial_change,omitempty"`
	StockLeft     int            `json:"stock_left"`
}

// OrderRejectedEvent published when a purchase is refused
type OrderRejectedEvent struct {
	BaseEvent
	ItemID      int64  `json:"item_id"`
	Reason      string `json:"reason"`
	RefundTotal int64  `json:"refund_total"`
}

// OrderCancelledEvent published when the customer takes their coins back
type OrderCancelledEvent struct {
	BaseEvent
	RefundedCoins map[string]int `json:"refunded_coins,omitempty"`
	RefundTotal   int64          `json:"refund_total"`
}
