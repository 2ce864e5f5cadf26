package stock

import "sort"

// Unit is the stock view of one purchasable unit of a product
type Unit struct {
	UnitType      string `json:"unit_type"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

// Product is the stock view of a product
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Units []Unit `json:"units"`
}

// Alert flags a unit whose stock is at or below its minimum level
type Alert struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	UnitType      string `json:"unit_type"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
	Status        Status `json:"status"`
}

// Summary counts units per status
type Summary struct {
	InStock    int `json:"in_stock"`
	LowStock   int `json:"low_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// BuildLowStockFeed emits one alert per (product, unit) that is not in stock.
// Out of stock alerts come before low stock alerts; input order is kept within a status.
func BuildLowStockFeed(products []Product) []Alert {
	alerts := []Alert{}
	for _, p := range products {
		for _, u := range p.Units {
			status := DeriveStatus(u.StockQuantity, u.MinStockLevel)
			if status == InStock {
				continue
			}
			alerts = append(alerts, Alert{
				ProductID:     p.ID,
				ProductName:   p.Name,
				UnitType:      u.UnitType,
				StockQuantity: u.StockQuantity,
				MinStockLevel: u.MinStockLevel,
				Status:        status,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Status.Severity() > alerts[j].Status.Severity()
	})
	return alerts
}

// Summarize counts the units of all products per status
func Summarize(products []Product) Summary {
	var s Summary
	for _, p := range products {
		for _, u := range p.Units {
			switch DeriveStatus(u.StockQuantity, u.MinStockLevel) {
			case OutOfStock:
				s.OutOfStock++
			case LowStock:
				s.LowStock++
			default:
				s.InStock++
			}
		}
	}
	return s
}
