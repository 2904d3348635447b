package dto

import "time"

// CreateSaleRequest entrada para registrar una venta. total_amount lo calcula el servidor.
type CreateSaleRequest struct {
	ProductID    string     `json:"product_id" validate:"required,uuid"`
	Quantity     int        `json:"quantity" validate:"min=1"`
	Date         *time.Time `json:"date"`
	CustomerName *string    `json:"customer_name"`
	Status       string     `json:"status" validate:"omitempty,oneof=completed pending cancelled"`
}
