// Package stock derives per-unit stock status and the low-stock alert feed.
package stock

// Status is the derived stock state of a product unit
type Status string

const (
	InStock    Status = "in_stock"
	LowStock   Status = "low_stock"
	OutOfStock Status = "out_of_stock"
)

// DeriveStatus maps a stock count and its minimum level to a status.
// A count equal to the minimum level is low. Negative counts are out of stock.
func DeriveStatus(stockQuantity, minStockLevel int) Status {
	switch {
	case stockQuantity <= 0:
		return OutOfStock
	case stockQuantity <= minStockLevel:
		return LowStock
	default:
		return InStock
	}
}

// Severity orders statuses for alerting, higher is worse
func (s Status) Severity() int {
	switch s {
	case OutOfStock:
		return 2
	case LowStock:
		return 1
	default:
		return 0
	}
}

// Transition reports the status after a stock movement and whether the
// movement newly made the unit worse than before.
func Transition(before, after, minStockLevel int) (Status, bool) {
	prev := DeriveStatus(before, minStockLevel)
	next := DeriveStatus(after, minStockLevel)
	return next, next.Severity() > prev.Severity()
}
