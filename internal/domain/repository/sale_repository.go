package repository

import (
	"context"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// SaleRepository define el puerto de persistencia para Sale (DIP).
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID devuelve (nil, nil) cuando la venta no existe. No incluye el join con el producto.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// ListWithProduct devuelve todas las ventas ordenadas por fecha descendente,
	// con Product completado con {name, price} del producto referenciado.
	ListWithProduct(ctx context.Context) ([]*entity.Sale, error)
	Delete(ctx context.Context, id string) (bool, error)
}
