package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		min      int
		want     Status
	}{
		{"at threshold is low", 5, 5, LowStock},
		{"above threshold", 6, 5, InStock},
		{"zero", 0, 5, OutOfStock},
		{"below threshold", 1, 5, LowStock},
		{"negative", -3, 5, OutOfStock},
		{"zero threshold", 1, 0, InStock},
		{"zero with zero threshold", 0, 0, OutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.quantity, tt.min))
		})
	}
}

func TestTransition(t *testing.T) {
	status, worse := Transition(10, 5, 5)
	assert.Equal(t, LowStock, status)
	assert.True(t, worse)

	status, worse = Transition(4, 3, 5)
	assert.Equal(t, LowStock, status)
	assert.False(t, worse, "already low")

	status, worse = Transition(3, 0, 5)
	assert.Equal(t, OutOfStock, status)
	assert.True(t, worse)

	status, worse = Transition(0, 20, 5)
	assert.Equal(t, InStock, status)
	assert.False(t, worse)
}

func TestBuildLowStockFeed_OnlyNonInStockUnits(t *testing.T) {
	products := []Product{
		{
			ID:   "p-1",
			Name: "Rice",
			Units: []Unit{
				{UnitType: "bag", StockQuantity: 0, MinStockLevel: 5},
				{UnitType: "sack", StockQuantity: 20, MinStockLevel: 5},
			},
		},
	}

	feed := BuildLowStockFeed(products)
	require.Len(t, feed, 1)
	assert.Equal(t, Alert{
		ProductID:     "p-1",
		ProductName:   "Rice",
		UnitType:      "bag",
		StockQuantity: 0,
		MinStockLevel: 5,
		Status:        OutOfStock,
	}, feed[0])
}

func TestBuildLowStockFeed_MostSevereFirstStable(t *testing.T) {
	products := []Product{
		{ID: "p-1", Name: "Milk", Units: []Unit{{UnitType: "1l", StockQuantity: 3, MinStockLevel: 5}}},
		{ID: "p-2", Name: "Eggs", Units: []Unit{{UnitType: "dozen", StockQuantity: 0, MinStockLevel: 2}}},
		{ID: "p-3", Name: "Bread", Units: []Unit{
			{UnitType: "loaf", StockQuantity: 2, MinStockLevel: 2},
			{UnitType: "half", StockQuantity: 0, MinStockLevel: 2},
		}},
	}

	feed := BuildLowStockFeed(products)
	require.Len(t, feed, 4)

	var keys []string
	for _, a := range feed {
		keys = append(keys, a.ProductID+"/"+a.UnitType)
	}
	assert.Equal(t, []string{"p-2/dozen", "p-3/half", "p-1/1l", "p-3/loaf"}, keys)
}

func TestBuildLowStockFeed_Empty(t *testing.T) {
	feed := BuildLowStockFeed(nil)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)
}

func TestSummarize(t *testing.T) {
	products := []Product{
		{ID: "p-1", Units: []Unit{{StockQuantity: 0, MinStockLevel: 1}, {StockQuantity: 1, MinStockLevel: 1}}},
		{ID: "p-2", Units: []Unit{{StockQuantity: 50, MinStockLevel: 10}}},
	}

	assert.Equal(t, Summary{InStock: 1, LowStock: 1, OutOfStock: 1}, Summarize(products))
}
