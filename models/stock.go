package models

import "time"

type StockItem struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	SKU               string    `json:"sku"`
	Description       string    `json:"description"`
	Unit              string    `json:"unit"`
	UnitPrice         float64   `json:"unit_price"`
	Quantity          float64   `json:"quantity"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LowStock reports whether the quantity has reached the threshold.
func (s *StockItem) LowStock() bool {
	return s.LowStockThreshold > 0 && s.Quantity <= s.LowStockThreshold
}

type StockItemInput struct {
	Name              string  `json:"name"`
	SKU               string  `json:"sku"`
	Description       string  `json:"description"`
	Unit              string  `json:"unit"`
	UnitPrice         float64 `json:"unit_price"`
	Quantity          float64 `json:"quantity"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
}

type StockAdjustment struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}
