package syncstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// ProductInput datos editables de un producto.
type ProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name es requerido", domain.ErrValidation)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price no puede ser negativo", domain.ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock no puede ser negativo", domain.ErrValidation)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
	return nil
}

// CreateProduct crea un producto a nombre de la identidad actual.
func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	const op = "create product"
	owner := s.Identity()
	if owner == "" {
		return nil, s.reject(op, domain.ErrUnauthenticated, "")
	}
	if err := in.normalize(); err != nil {
		return nil, s.reject(op, err, err.Error())
	}
	now := s.now()
	product := &entity.Product{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     &owner,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, s.mutationFailed(op, err)
	}
	s.log.Info().Str("product_id", product.ID).Msg("producto creado")
	s.Notify(NotificationSuccess, "Producto creado", "")
	s.refresh(ctx, true, false)
	return product, nil
}

// UpdateProduct reemplaza los campos editables y refresca updated_at.
func (s *Store) UpdateProduct(ctx context.Context, id string, in ProductInput) (*entity.Product, error) {
	const op = "update product"
	if s.Identity() == "" {
		return nil, s.reject(op, domain.ErrUnauthenticated, "")
	}
	if err := in.normalize(); err != nil {
		return nil, s.reject(op, err, err.Error())
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, s.mutationFailed(op, err)
	}
	if product == nil {
		return nil, s.reject(op, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id), "Producto no encontrado")
	}

	updated := *product
	updated.Name = in.Name
	updated.Description = in.Description
	updated.Price = in.Price
	updated.Stock = in.Stock
	updated.UpdatedAt = s.now()
	if err := s.products.Update(ctx, &updated); err != nil {
		return nil, s.mutationFailed(op, err)
	}
	s.log.Info().Str("product_id", id).Msg("producto actualizado")
	s.Notify(NotificationSuccess, "Producto actualizado", "")
	s.refresh(ctx, true, false)
	return &updated, nil
}

// DeleteProduct elimina el producto. Las ventas que lo referencian se conservan
// y se muestran sin producto embebido.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	const op = "delete product"
	if s.Identity() == "" {
		return s.reject(op, domain.ErrUnauthenticated, "")
	}
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return s.mutationFailed(op, err)
	}
	if !deleted {
		return s.reject(op, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id), "Producto no encontrado")
	}
	s.log.Info().Str("product_id", id).Msg("producto eliminado")
	s.Notify(NotificationSuccess, "Producto eliminado", "")
	s.refresh(ctx, true, false)
	return nil
}
