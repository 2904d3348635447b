// Package memory implementa los puertos de persistencia y el change-feed en memoria.
// Se usa con DB_DRIVER=memory (demo local sin PostgreSQL) y en los tests de integración
// de las capas superiores. Cada escritura publica un ChangeEvent, igual que los
// triggers de notify_table_change en PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
)

var (
	_ repository.ProductRepository = (*ProductRepo)(nil)
	_ repository.StockRepository   = (*StockRepo)(nil)
	_ repository.SaleRepository    = (*SaleRepo)(nil)
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.SessionRepository = (*SessionRepo)(nil)
	_ repository.ChangeFeed        = (*Feed)(nil)
)

// Backend tablas en memoria compartidas por todos los repositorios.
type Backend struct {
	mu       sync.RWMutex
	products map[string]entity.Product
	sales    map[string]entity.Sale
	users    map[string]entity.User
	sessions map[string]entity.Session

	Feed *Feed
}

// NewBackend crea un backend vacío con su change-feed.
func NewBackend() *Backend {
	return &Backend{
		products: make(map[string]entity.Product),
		sales:    make(map[string]entity.Sale),
		users:    make(map[string]entity.User),
		sessions: make(map[string]entity.Session),
		Feed:     &Feed{handlers: make(map[string]map[uint64]repository.ChangeHandler)},
	}
}

// Products repositorio de productos.
func (b *Backend) Products() *ProductRepo { return &ProductRepo{b: b} }

// Stock repositorio de stock (columna stock de products).
func (b *Backend) Stock() *StockRepo { return &StockRepo{b: b} }

// Sales repositorio de ventas.
func (b *Backend) Sales() *SaleRepo { return &SaleRepo{b: b} }

// Users repositorio de usuarios.
func (b *Backend) Users() *UserRepo { return &UserRepo{b: b} }

// Sessions repositorio de sesiones.
func (b *Backend) Sessions() *SessionRepo { return &SessionRepo{b: b} }

func (b *Backend) changed(table, kind, id string) {
	b.Feed.Dispatch(entity.ChangeEvent{Table: table, Type: kind, RecordID: id, ReceivedAt: time.Now()})
}

// ── productos ─────────────────────────────────────────────────────────────────

// ProductRepo productos en memoria.
type ProductRepo struct{ b *Backend }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.b.mu.Lock()
	r.b.products[p.ID] = *p
	r.b.mu.Unlock()
	r.b.changed(entity.TableProducts, entity.ChangeInsert, p.ID)
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	p, ok := r.b.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.b.mu.Lock()
	cur, ok := r.b.products[p.ID]
	if ok {
		cur.Name, cur.Description, cur.Price, cur.Stock, cur.UpdatedAt = p.Name, p.Description, p.Price, p.Stock, p.UpdatedAt
		r.b.products[p.ID] = cur
	}
	r.b.mu.Unlock()
	if ok {
		r.b.changed(entity.TableProducts, entity.ChangeUpdate, p.ID)
	}
	return nil
}

func (r *ProductRepo) List(_ context.Context) ([]*entity.Product, error) {
	r.b.mu.RLock()
	list := make([]*entity.Product, 0, len(r.b.products))
	for _, p := range r.b.products {
		p := p
		list = append(list, &p)
	}
	r.b.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) (bool, error) {
	r.b.mu.Lock()
	_, ok := r.b.products[id]
	delete(r.b.products, id)
	r.b.mu.Unlock()
	if ok {
		r.b.changed(entity.TableProducts, entity.ChangeDelete, id)
	}
	return ok, nil
}

// ── stock ─────────────────────────────────────────────────────────────────────

// StockRepo stock en memoria.
type StockRepo struct{ b *Backend }

func (r *StockRepo) Get(_ context.Context, productID string) (int, bool, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	p, ok := r.b.products[productID]
	return p.Stock, ok, nil
}

func (r *StockRepo) Set(_ context.Context, productID string, stock int) (bool, error) {
	r.b.mu.Lock()
	p, ok := r.b.products[productID]
	if ok {
		p.Stock = stock
		r.b.products[productID] = p
	}
	r.b.mu.Unlock()
	if ok {
		r.b.changed(entity.TableProducts, entity.ChangeUpdate, productID)
	}
	return ok, nil
}

// ── ventas ────────────────────────────────────────────────────────────────────

// SaleRepo ventas en memoria.
type SaleRepo struct{ b *Backend }

func (r *SaleRepo) Create(_ context.Context, s *entity.Sale) error {
	cp := *s
	cp.Product = nil
	r.b.mu.Lock()
	r.b.sales[s.ID] = cp
	r.b.mu.Unlock()
	r.b.changed(entity.TableSales, entity.ChangeInsert, s.ID)
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	s, ok := r.b.sales[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *SaleRepo) ListWithProduct(_ context.Context) ([]*entity.Sale, error) {
	r.b.mu.RLock()
	list := make([]*entity.Sale, 0, len(r.b.sales))
	for _, s := range r.b.sales {
		s := s
		if p, ok := r.b.products[s.ProductID]; ok {
			s.Product = &entity.ProductRef{Name: p.Name, Price: p.Price}
		}
		list = append(list, &s)
	}
	r.b.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

func (r *SaleRepo) Delete(_ context.Context, id string) (bool, error) {
	r.b.mu.Lock()
	_, ok := r.b.sales[id]
	delete(r.b.sales, id)
	r.b.mu.Unlock()
	if ok {
		r.b.changed(entity.TableSales, entity.ChangeDelete, id)
	}
	return ok, nil
}

// ── auth ──────────────────────────────────────────────────────────────────────

// UserRepo usuarios en memoria; el email es único sin distinguir mayúsculas.
type UserRepo struct{ b *Backend }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range r.b.users {
		if existing.Email == email {
			return domain.ErrEmailAlreadyExists
		}
	}
	cp := *u
	cp.Email = email
	r.b.users[u.ID] = cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	u, ok := r.b.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.b.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// SessionRepo sesiones en memoria.
type SessionRepo struct{ b *Backend }

func (r *SessionRepo) Create(_ context.Context, s *entity.Session) error {
	r.b.mu.Lock()
	r.b.sessions[s.ID] = *s
	r.b.mu.Unlock()
	return nil
}

func (r *SessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	s, ok := r.b.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *SessionRepo) Delete(_ context.Context, id string) (bool, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	_, ok := r.b.sessions[id]
	delete(r.b.sessions, id)
	return ok, nil
}

func (r *SessionRepo) ListActive(_ context.Context, now time.Time) ([]*entity.Session, error) {
	r.b.mu.RLock()
	list := make([]*entity.Session, 0, len(r.b.sessions))
	for _, s := range r.b.sessions {
		s := s
		if !s.Expired(now) {
			list = append(list, &s)
		}
	}
	r.b.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// ── change feed ───────────────────────────────────────────────────────────────

// Feed change-feed en memoria; los handlers corren en la goroutine que escribió.
type Feed struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]repository.ChangeHandler
	nextID   uint64
}

// Subscribe registra el handler para la tabla. La función devuelta es idempotente.
func (f *Feed) Subscribe(table string, handler repository.ChangeHandler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.handlers[table] == nil {
		f.handlers[table] = make(map[uint64]repository.ChangeHandler)
	}
	f.handlers[table][id] = handler
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers[table], id)
			f.mu.Unlock()
		})
	}
}

// Dispatch entrega el evento a los handlers de su tabla.
func (f *Feed) Dispatch(ev entity.ChangeEvent) {
	f.mu.RLock()
	hs := make([]repository.ChangeHandler, 0, len(f.handlers[ev.Table]))
	for _, h := range f.handlers[ev.Table] {
		hs = append(hs, h)
	}
	f.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}

// Subscribers cantidad de handlers registrados para la tabla.
func (f *Feed) Subscribers(table string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers[table])
}
