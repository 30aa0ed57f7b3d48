package enums

import "slices"

// SaleStatus is the lifecycle state of a sale. Only completed -> void is a
// legal transition once a sale exists.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusVoid      SaleStatus = "void"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPending,
	SaleStatusCompleted,
	SaleStatusVoid,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	return slices.Contains(validSaleStatuses, s)
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	return parse(validSaleStatuses, value, "sale status")
}
