package dto

import "github.com/shopspring/decimal"

// ProductRequest entrada para crear o actualizar un producto (el update reemplaza todos los campos).
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
}
