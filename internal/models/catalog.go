package models

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	Price              float64    `json:"price"`
	OriginalPrice      *float64   `json:"original_price,omitempty"`
	DiscountPercentage int        `json:"discount_percentage"`
	ImageURL           string     `json:"image_url,omitempty"`
	StockQuantity      int        `json:"stock_quantity"`
	Brand              string     `json:"brand"`
	CategoryID         *uuid.UUID `json:"category_id,omitempty"`
	CategoryName       string     `json:"category_name,omitempty"`
	IsFeatured         bool       `json:"is_featured"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
