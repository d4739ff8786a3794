package models

// OrderStatus is the manufacturing progress of an order. The value is mutated
// only by an operator; the order flow treats it as read-only.
type OrderStatus string

const (
	StatusProcessing    OrderStatus = "processing"
	StatusManufacturing OrderStatus = "manufacturing"
	StatusQualityCheck  OrderStatus = "quality_check"
	StatusShipping      OrderStatus = "shipping"
	StatusDelivered     OrderStatus = "delivered"
)

// StatusProgression is the fixed order every order moves through.
var StatusProgression = []OrderStatus{
	StatusProcessing,
	StatusManufacturing,
	StatusQualityCheck,
	StatusShipping,
	StatusDelivered,
}

// ParseOrderStatus converts a raw value into a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	return status, status.Index() >= 0
}

// Index returns the position of the status in StatusProgression, or -1 when
// the value is not a known status.
func (s OrderStatus) Index() int {
	switch s {
	case StatusProcessing:
		return 0
	case StatusManufacturing:
		return 1
	case StatusQualityCheck:
		return 2
	case StatusShipping:
		return 3
	case StatusDelivered:
		return 4
	default:
		return -1
	}
}

// Label is the customer-facing name of the stage.
func (s OrderStatus) Label() string {
	switch s {
	case StatusProcessing:
		return "Order Processing"
	case StatusManufacturing:
		return "Manufacturing"
	case StatusQualityCheck:
		return "Quality Check"
	case StatusShipping:
		return "Shipping"
	case StatusDelivered:
		return "Delivered"
	default:
		return "Unknown"
	}
}
