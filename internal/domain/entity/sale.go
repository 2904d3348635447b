package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados válidos de una venta.
const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusCancelled = "cancelled"
)

// ValidSaleStatus indica si el estado es uno de los conocidos.
func ValidSaleStatus(s string) bool {
	switch s {
	case SaleStatusCompleted, SaleStatusPending, SaleStatusCancelled:
		return true
	}
	return false
}

// Sale representa una venta de un único producto.
// TotalAmount se congela al crear la venta; no se recalcula si el precio cambia después.
type Sale struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	CustomerName *string         `json:"customer_name"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	OwnerID      *string         `json:"user_id,omitempty"`

	// Product se completa al leer (join); nil si el producto ya no existe.
	Product *ProductRef `json:"products,omitempty"`
}

// ProductRef datos del producto embebidos en la venta para mostrarla.
type ProductRef struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
