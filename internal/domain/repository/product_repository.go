package repository

import (
	"context"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID devuelve (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	// List devuelve todos los productos ordenados por created_at descendente.
	List(ctx context.Context) ([]*entity.Product, error)
	// Delete devuelve false si no existía.
	Delete(ctx context.Context, id string) (bool, error)
}
