package enums

import "fmt"

// OrderStatus maps to the order_status_enum enum in Postgres.
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "created"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusDisputed       OrderStatus = "disputed"
	OrderStatusRefunded       OrderStatus = "refunded"
	OrderStatusCanceled       OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusDelivered,
	OrderStatusDisputed,
	OrderStatusRefunded,
	OrderStatusCanceled,
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusRefunded, OrderStatusCanceled:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
