package models

// All lists every table the POS services read or write, in dependency order.
func All() []any {
	return []any{
		&Product{},
		&Customer{},
		&InventoryRecord{},
		&Sale{},
		&SaleItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
