package models

import "time"

// StockShortfall signale une ligne de commande que le stock n'a pas pu couvrir.
type StockShortfall struct {
	ProductID string `json:"productId"`
	Requested int64  `json:"requested"`
}

type InventoryItem struct {
	ProductID    string    `json:"productId"`
	Name         string    `json:"name"`
	Stock        int64     `json:"stock"`
	ReorderLevel int64     `json:"reorderLevel"`
	LowStock     bool      `json:"lowStock"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func InventoryFromProduct(p Product) InventoryItem {
	return InventoryItem{
		ProductID:    p.ID.Hex(),
		Name:         p.Name,
		Stock:        p.Stock,
		ReorderLevel: p.ReorderLevel,
		LowStock:     p.LowStock(),
		UpdatedAt:    p.UpdatedAt,
	}
}
