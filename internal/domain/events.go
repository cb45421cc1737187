package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated      OrderEventType = "order.created"
	OrderEventSlipUploaded OrderEventType = "order.slip_uploaded"
	OrderEventCompleted    OrderEventType = "order.completed"
	OrderEventCancelled    OrderEventType = "order.cancelled"
)

type OrderEvent struct {
	Type            OrderEventType `json:"type"`
	OrderID         string         `json:"orderId"`
	UserID          string         `json:"userId"`
	CustomerEmail   string         `json:"customerEmail,omitempty"`
	CustomerName    string         `json:"customerName,omitempty"`
	OrderType       OrderType      `json:"orderType"`
	ItemTitle       string         `json:"itemTitle"`
	Status          OrderStatus    `json:"status"`
	Total           int64          `json:"total"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

func NewOrderEvent(t OrderEventType, o Order) OrderEvent {
	return OrderEvent{
		Type:      t,
		OrderID:   o.ID,
		UserID:    o.UserID,
		OrderType: o.OrderType,
		ItemTitle: o.ItemTitle,
		Status:    o.Status,
		Total:     o.Total,
		Timestamp: time.Now().UTC(),
	}
}

func (e OrderEvent) EventType() string {
	return string(e.Type)
}
