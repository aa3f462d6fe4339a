package enums

import "fmt"

// OrderStatus tracks the lifecycle of a rental order.
type OrderStatus string

const (
	OrderStatusBooked    OrderStatus = "booked"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusInUse     OrderStatus = "in_use"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusBooked,
	OrderStatusApproved,
	OrderStatusInUse,
	OrderStatusCompleted,
	OrderStatusRejected,
	OrderStatusCancelled,
}

// ActiveOrderStatuses are the statuses that hold a vehicle's time window.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusBooked,
	OrderStatusApproved,
	OrderStatusInUse,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the order currently holds its vehicle's window.
func (o OrderStatus) IsActive() bool {
	switch o {
	case OrderStatusBooked, OrderStatusApproved, OrderStatusInUse:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
