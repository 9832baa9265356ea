package models

import "time"

type CartItem struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	Size      string    `json:"size,omitempty"`
	Image     string    `json:"image,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
	Total  float64    `json:"total"`
	Count  int        `json:"count"`
}
