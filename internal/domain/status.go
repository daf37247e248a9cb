package domain

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending            OrderStatus = "pending"
	StatusConfirmed          OrderStatus = "confirmed"
	StatusProcessing         OrderStatus = "processing"
	StatusPartiallyFulfilled OrderStatus = "partially_fulfilled"
	StatusShipped            OrderStatus = "shipped"
	StatusDelivered          OrderStatus = "delivered"
	StatusCancelled          OrderStatus = "cancelled"
	StatusReturned           OrderStatus = "returned"
)

// IsOpen reports whether an order in this status still needs stock allocated.
// This is the single open-demand predicate shared by allocation and scenario
// simulation.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusPartiallyFulfilled:
		return true
	default:
		return false
	}
}

// OpenOrders returns the orders with an open status, in input order.
func OpenOrders(orders []Order) []Order {
	open := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Status.IsOpen() {
			open = append(open, o)
		}
	}
	return open
}
