// Package syncstore mantiene la copia en memoria de productos y ventas de una
// identidad, la refresca con el change-feed del backend y ejecuta las escrituras
// de ventas que ajustan el stock.
//
// Concurrencia: las lecturas pueden correr en paralelo y la última que termina
// gana (sin versionado). Las mutaciones se asumen serializadas por el llamador.
package syncstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

// State instantánea del store para la capa de presentación.
// Los punteros son compartidos con el store: no mutar.
type State struct {
	Products      []*entity.Product `json:"products"`
	Sales         []*entity.Sale    `json:"sales"`
	TotalSales    decimal.Decimal   `json:"total_sales"`
	Loading       bool              `json:"loading"`
	Error         string            `json:"error,omitempty"`
	Identity      string            `json:"user_id,omitempty"`
	Notifications []Notification    `json:"notifications"`
}

// Store contenedor de estado explícito (sin singleton global); se inyecta en la capa de presentación.
type Store struct {
	products repository.ProductRepository
	stock    repository.StockRepository
	sales    repository.SaleRepository
	feed     repository.ChangeFeed
	log      *logger.Logger

	now   func() time.Time
	newID func() string

	mu            sync.RWMutex
	identity      string
	productList   []*entity.Product
	saleList      []*entity.Sale
	totalSales    decimal.Decimal
	inFlight      int // fetches en curso; Loading = inFlight > 0
	lastErr       string
	notifications []Notification

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// New construye un store vacío y sin identidad.
func New(
	products repository.ProductRepository,
	stock repository.StockRepository,
	sales repository.SaleRepository,
	feed repository.ChangeFeed,
	log *logger.Logger,
) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		products:   products,
		stock:      stock,
		sales:      sales,
		feed:       feed,
		log:        log.Component("syncstore"),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		totalSales: decimal.Zero,
		observers:  make(map[int]func(State)),
	}
}

// SetIdentity fija la identidad actual ("" = sin sesión). No refresca: el llamador
// debe volver a invocar los fetch y subscribe.
func (s *Store) SetIdentity(id string) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
	s.log.Debug().Bool("identity", id != "").Msg("identidad actualizada")
	s.publish()
}

// Identity devuelve la identidad actual o "".
func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// State devuelve una copia del estado actual.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		Products:      make([]*entity.Product, len(s.productList)),
		Sales:         make([]*entity.Sale, len(s.saleList)),
		TotalSales:    s.totalSales,
		Loading:       s.inFlight > 0,
		Error:         s.lastErr,
		Identity:      s.identity,
		Notifications: make([]Notification, len(s.notifications)),
	}
	copy(st.Products, s.productList)
	copy(st.Sales, s.saleList)
	copy(st.Notifications, s.notifications)
	return st
}

// Watch registra un observador que recibe el estado tras cada cambio.
// El observador corre en la goroutine que produjo el cambio; no debe bloquear.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) publish() {
	st := s.State()
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// FetchProducts reemplaza la colección de productos (created_at descendente).
// Sin identidad la vacía. Si la consulta falla se conservan los datos anteriores.
func (s *Store) FetchProducts(ctx context.Context) error {
	owner := s.Identity()
	if owner == "" {
		s.log.Debug().Msg("sin identidad, se omite la carga de productos")
		s.mu.Lock()
		s.productList = nil
		s.mu.Unlock()
		s.publish()
		return nil
	}

	s.beginLoading()
	defer s.endLoading()

	list, err := s.products.List(ctx)
	if err != nil {
		return s.fetchFailed(ctx, "fetch products", "Error al cargar los productos", err)
	}

	s.mu.Lock()
	if s.identity != owner {
		// La identidad cambió mientras se consultaba; el resultado ya no aplica.
		s.mu.Unlock()
		return nil
	}
	s.productList = list
	s.lastErr = ""
	s.mu.Unlock()
	s.log.Debug().Int("count", len(list)).Msg("productos cargados")
	return nil
}

// FetchSales reemplaza la colección de ventas (fecha descendente, con el producto embebido)
// y recalcula TotalSales sobre el resultado completo.
func (s *Store) FetchSales(ctx context.Context) error {
	owner := s.Identity()
	if owner == "" {
		s.log.Debug().Msg("sin identidad, se omite la carga de ventas")
		s.mu.Lock()
		s.saleList = nil
		s.totalSales = decimal.Zero
		s.mu.Unlock()
		s.publish()
		return nil
	}

	s.beginLoading()
	defer s.endLoading()

	list, err := s.sales.ListWithProduct(ctx)
	if err != nil {
		return s.fetchFailed(ctx, "fetch sales", "Error al cargar las ventas", err)
	}

	s.mu.Lock()
	if s.identity != owner {
		s.mu.Unlock()
		return nil
	}
	s.saleList = list
	s.totalSales = sumTotals(list)
	s.lastErr = ""
	s.mu.Unlock()
	s.log.Debug().Int("count", len(list)).Msg("ventas cargadas")
	return nil
}

func sumTotals(list []*entity.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range list {
		total = total.Add(sale.TotalAmount)
	}
	return total
}

func (s *Store) beginLoading() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	s.publish()
}

// endLoading siempre se ejecuta vía defer, haya error o no.
func (s *Store) endLoading() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Store) fetchFailed(ctx context.Context, op, message string, cause error) error {
	err := backendErr(op, cause)
	if ctx.Err() != nil {
		// El llamador abandonó la consulta (p. ej. unsubscribe): no es un fallo del backend.
		return err
	}
	s.log.Error().Err(cause).Str("op", op).Msg("consulta al backend fallida")
	s.recordError(message, cause.Error())
	return err
}

// backendErr envuelve el error del colaborador conservando la causa original.
func backendErr(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrBackendFailure, cause)
}

// userMessage mensaje para el usuario según la taxonomía de errores.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Debe iniciar sesión para realizar esta operación"
	case errors.Is(err, domain.ErrNotFound):
		return "El registro no existe"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "Stock insuficiente"
	case errors.Is(err, domain.ErrValidation):
		return "Datos inválidos"
	default:
		return "Ocurrió un error en el backend"
	}
}

// recordError deja el error visible en el estado y en las notificaciones.
func (s *Store) recordError(message, description string) {
	s.mu.Lock()
	s.lastErr = message
	s.pushNotificationLocked(Notification{
		Type:        NotificationError,
		Message:     message,
		Description: description,
		At:          s.now(),
	})
	s.mu.Unlock()
	s.publish()
}
