package syncstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// SaleInput datos para registrar una venta.
type SaleInput struct {
	ProductID    string
	Quantity     int
	Date         time.Time // cero = ahora
	CustomerName string
	Status       string // vacío = completed
}

func (in *SaleInput) normalize(now time.Time) error {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.ProductID == "" {
		return fmt.Errorf("%w: product_id es requerido", domain.ErrValidation)
	}
	if in.Quantity < 1 {
		return fmt.Errorf("%w: quantity debe ser al menos 1", domain.ErrValidation)
	}
	if in.Status == "" {
		in.Status = entity.SaleStatusCompleted
	}
	if !entity.ValidSaleStatus(in.Status) {
		return fmt.Errorf("%w: status desconocido %q", domain.ErrValidation, in.Status)
	}
	if in.Date.IsZero() {
		in.Date = now
	}
	return nil
}

// CreateSale registra la venta y descuenta el stock del producto.
//
// Son dos escrituras secuenciales sin transacción: si la segunda falla la venta
// queda registrada sin descontar stock. No se compensa; se devuelve
// ErrBackendFailure y se registra un aviso para conciliar manualmente.
func (s *Store) CreateSale(ctx context.Context, in SaleInput) (*entity.Sale, error) {
	const op = "create sale"
	owner := s.Identity()
	if owner == "" {
		return nil, s.reject(op, domain.ErrUnauthenticated, "")
	}
	if err := in.normalize(s.now()); err != nil {
		return nil, s.reject(op, err, err.Error())
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, s.mutationFailed(op, err)
	}
	if product == nil {
		return nil, s.reject(op, fmt.Errorf("%w: producto %s", domain.ErrNotFound, in.ProductID), "Producto no encontrado")
	}
	if product.Stock < in.Quantity {
		err := fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, product.Stock, in.Quantity)
		return nil, s.reject(op, err, fmt.Sprintf("Disponible: %d", product.Stock))
	}

	sale := &entity.Sale{
		ID:          s.newID(),
		Date:        in.Date,
		ProductID:   product.ID,
		Quantity:    in.Quantity,
		TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Status:      in.Status,
		CreatedAt:   s.now(),
		OwnerID:     &owner,
	}
	if in.CustomerName != "" {
		name := in.CustomerName
		sale.CustomerName = &name
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, s.mutationFailed(op, err)
	}
	updated, err := s.stock.Set(ctx, product.ID, product.Stock-in.Quantity)
	if err != nil {
		s.warnUndeducted(sale, err)
		return nil, s.mutationFailed(op, err)
	}

	s.log.Info().Str("sale_id", sale.ID).Str("product_id", product.ID).Int("quantity", in.Quantity).
		Str("total", sale.TotalAmount.String()).Msg("venta registrada")
	s.Notify(NotificationSuccess, "Venta registrada", "")
	if !updated {
		// El producto se borró entre la lectura y la escritura del stock.
		s.warnUndeducted(sale, nil)
		s.Notify(NotificationWarning, "Venta registrada sin descontar stock", "El producto ya no existe")
	}
	s.refresh(ctx, true, true)
	return sale, nil
}

// DeleteSale elimina la venta y devuelve la cantidad al stock del producto.
// Mismas escrituras no atómicas que CreateSale, en sentido inverso.
func (s *Store) DeleteSale(ctx context.Context, id string) error {
	const op = "delete sale"
	if s.Identity() == "" {
		return s.reject(op, domain.ErrUnauthenticated, "")
	}
	if strings.TrimSpace(id) == "" {
		err := fmt.Errorf("%w: id es requerido", domain.ErrValidation)
		return s.reject(op, err, err.Error())
	}

	sale, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return s.mutationFailed(op, err)
	}
	if sale == nil {
		return s.reject(op, fmt.Errorf("%w: venta %s", domain.ErrNotFound, id), "Venta no encontrada")
	}

	deleted, err := s.sales.Delete(ctx, id)
	if err != nil {
		return s.mutationFailed(op, err)
	}
	if !deleted {
		return s.reject(op, fmt.Errorf("%w: venta %s", domain.ErrNotFound, id), "Venta no encontrada")
	}

	stock, found, err := s.stock.Get(ctx, sale.ProductID)
	if err != nil {
		s.warnUnrestored(sale, err)
		return s.mutationFailed(op, err)
	}
	if !found {
		s.warnUnrestored(sale, nil)
		return s.reject(op, fmt.Errorf("%w: producto %s", domain.ErrNotFound, sale.ProductID), "Producto no encontrado")
	}
	updated, err := s.stock.Set(ctx, sale.ProductID, stock+sale.Quantity)
	if err != nil {
		s.warnUnrestored(sale, err)
		return s.mutationFailed(op, err)
	}

	if !updated {
		s.warnUnrestored(sale, nil)
		return s.reject(op, fmt.Errorf("%w: producto %s", domain.ErrNotFound, sale.ProductID), "Producto no encontrado")
	}

	s.log.Info().Str("sale_id", id).Str("product_id", sale.ProductID).Int("restored", sale.Quantity).Msg("venta eliminada")
	s.Notify(NotificationSuccess, "Venta eliminada", "")
	s.refresh(ctx, true, true)
	return nil
}

func (s *Store) warnUndeducted(sale *entity.Sale, err error) {
	s.log.Warn().Err(err).
		Str("sale_id", sale.ID).
		Str("product_id", sale.ProductID).
		Int("quantity", sale.Quantity).
		Msg("venta registrada sin descontar stock; requiere conciliación manual")
}

func (s *Store) warnUnrestored(sale *entity.Sale, err error) {
	s.log.Warn().Err(err).
		Str("sale_id", sale.ID).
		Str("product_id", sale.ProductID).
		Int("quantity", sale.Quantity).
		Msg("venta eliminada sin devolver stock; requiere conciliación manual")
}

// reject condición esperada y corregible por el usuario: se reporta, no se registra como fallo.
func (s *Store) reject(op string, err error, description string) error {
	s.log.Info().Str("op", op).Str("reason", err.Error()).Msg("operación rechazada")
	kind := NotificationError
	if errors.Is(err, domain.ErrInsufficientStock) {
		kind = NotificationWarning
	}
	s.mu.Lock()
	s.lastErr = userMessage(err)
	s.pushNotificationLocked(Notification{Type: kind, Message: s.lastErr, Description: description, At: s.now()})
	s.mu.Unlock()
	s.publish()
	return err
}

func (s *Store) mutationFailed(op string, cause error) error {
	s.log.Error().Err(cause).Str("op", op).Msg("escritura en el backend fallida")
	s.recordError(userMessage(domain.ErrBackendFailure), cause.Error())
	return backendErr(op, cause)
}

// refresh recarga las colecciones afectadas tras una mutación exitosa.
// Sus errores quedan en el estado; la mutación ya se aplicó.
func (s *Store) refresh(ctx context.Context, products, sales bool) {
	if products {
		_ = s.FetchProducts(ctx)
	}
	if sales {
		_ = s.FetchSales(ctx)
	}
}
