package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación del puerto SaleRepository sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador de persistencia para ventas.
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create persiste una venta. total_amount llega calculado y no se vuelve a tocar.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO sales (id, date, customer_name, product_id, quantity, total_amount, status, created_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.Date, s.CustomerName, s.ProductID, s.Quantity, s.TotalAmount, s.Status, s.CreatedAt, s.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// GetByID obtiene una venta por ID (sin el producto embebido).
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	query := `
		SELECT id, date, customer_name, product_id, quantity, total_amount, status, created_at, user_id
		FROM sales WHERE id = $1`
	var s entity.Sale
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Date, &s.CustomerName, &s.ProductID, &s.Quantity, &s.TotalAmount, &s.Status, &s.CreatedAt, &s.OwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

// ListWithProduct lista todas las ventas por fecha descendente con {name, price} del producto.
// LEFT JOIN: si el producto ya no existe, Product queda en nil.
func (r *SaleRepo) ListWithProduct(ctx context.Context) ([]*entity.Sale, error) {
	query := `
		SELECT s.id, s.date, s.customer_name, s.product_id, s.quantity, s.total_amount, s.status, s.created_at, s.user_id,
		       p.name, p.price
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		ORDER BY s.date DESC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Sale, 0)
	for rows.Next() {
		var (
			s            entity.Sale
			productName  *string
			productPrice decimal.NullDecimal
		)
		if err := rows.Scan(
			&s.ID, &s.Date, &s.CustomerName, &s.ProductID, &s.Quantity, &s.TotalAmount, &s.Status, &s.CreatedAt, &s.OwnerID,
			&productName, &productPrice,
		); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if productName != nil {
			s.Product = &entity.ProductRef{Name: *productName, Price: productPrice.Decimal}
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// Delete elimina una venta por ID.
func (r *SaleRepo) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete sale: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}
