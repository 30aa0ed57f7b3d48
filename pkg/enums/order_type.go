package enums

import "slices"

// OrderType captures where the order is consumed.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

var validOrderTypes = []OrderType{
	OrderTypeDineIn,
	OrderTypeTakeout,
	OrderTypeDelivery,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	return slices.Contains(validOrderTypes, o)
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	return parse(validOrderTypes, value, "order type")
}
