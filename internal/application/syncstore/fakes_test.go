package syncstore_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
)

var errBackendDown = errors.New("connection refused")

// memBackend implementa los puertos de productos, stock y ventas en memoria,
// contando lecturas y escrituras para verificar efectos.
type memBackend struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	sales    map[string]*entity.Sale

	productLists int
	saleLists    int
	reads        int
	writes       int

	failProductList bool
	failSaleList    bool
	failStockSet    bool
	failSaleCreate  bool

	// dropBeforeStockSet borra el producto justo antes de escribir su stock
	// (un borrado concurrente entre la lectura y la escritura).
	dropBeforeStockSet bool
}

var (
	_ repository.ProductRepository = (*memBackend)(nil)
	_ repository.SaleRepository    = (*memSales)(nil)
	_ repository.StockRepository   = (*memStock)(nil)
)

func newMemBackend() *memBackend {
	return &memBackend{
		products: make(map[string]*entity.Product),
		sales:    make(map[string]*entity.Sale),
	}
}

func (b *memBackend) seedProduct(p entity.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := p
	b.products[p.ID] = &cp
}

func (b *memBackend) seedSale(s entity.Sale) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := s
	b.sales[s.ID] = &cp
}

func (b *memBackend) stockOf(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.products[id].Stock
}

func (b *memBackend) counts() (productLists, saleLists, writes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.productLists, b.saleLists, b.writes
}

func (b *memBackend) saleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sales)
}

// ── productos ─────────────────────────────────────────────────────────────────

func (b *memBackend) Create(_ context.Context, p *entity.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	cp := *p
	b.products[p.ID] = &cp
	return nil
}

func (b *memBackend) GetByID(_ context.Context, id string) (*entity.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	p, ok := b.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (b *memBackend) Update(_ context.Context, p *entity.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	cp := *p
	b.products[p.ID] = &cp
	return nil
}

func (b *memBackend) List(_ context.Context) ([]*entity.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.productLists++
	if b.failProductList {
		return nil, errBackendDown
	}
	out := make([]*entity.Product, 0, len(b.products))
	for _, p := range b.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (b *memBackend) Delete(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if _, ok := b.products[id]; !ok {
		return false, nil
	}
	delete(b.products, id)
	return true, nil
}

// ── stock ─────────────────────────────────────────────────────────────────────

type memStock struct{ b *memBackend }

func (s memStock) Get(_ context.Context, productID string) (int, bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.reads++
	p, ok := s.b.products[productID]
	if !ok {
		return 0, false, nil
	}
	return p.Stock, true, nil
}

func (s memStock) Set(_ context.Context, productID string, stock int) (bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.failStockSet {
		return false, errBackendDown
	}
	if s.b.dropBeforeStockSet {
		delete(s.b.products, productID)
	}
	s.b.writes++
	p, ok := s.b.products[productID]
	if ok {
		p.Stock = stock
	}
	return ok, nil
}

// ── ventas ────────────────────────────────────────────────────────────────────

type memSales struct{ b *memBackend }

func (s memSales) Create(_ context.Context, sale *entity.Sale) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.failSaleCreate {
		return errBackendDown
	}
	s.b.writes++
	cp := *sale
	cp.Product = nil
	s.b.sales[sale.ID] = &cp
	return nil
}

func (s memSales) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.reads++
	sale, ok := s.b.sales[id]
	if !ok {
		return nil, nil
	}
	cp := *sale
	return &cp, nil
}

func (s memSales) ListWithProduct(_ context.Context) ([]*entity.Sale, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.saleLists++
	if s.b.failSaleList {
		return nil, errBackendDown
	}
	out := make([]*entity.Sale, 0, len(s.b.sales))
	for _, sale := range s.b.sales {
		cp := *sale
		if p, ok := s.b.products[sale.ProductID]; ok {
			cp.Product = &entity.ProductRef{Name: p.Name, Price: p.Price}
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s memSales) Delete(_ context.Context, id string) (bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.writes++
	if _, ok := s.b.sales[id]; !ok {
		return false, nil
	}
	delete(s.b.sales, id)
	return true, nil
}

// ── change feed ───────────────────────────────────────────────────────────────

// memFeed change-feed manual: Emit entrega el evento a los handlers de la tabla.
type memFeed struct {
	mu       sync.Mutex
	handlers map[string]map[int]repository.ChangeHandler
	next     int
}

var _ repository.ChangeFeed = (*memFeed)(nil)

func newMemFeed() *memFeed {
	return &memFeed{handlers: make(map[string]map[int]repository.ChangeHandler)}
}

func (f *memFeed) Subscribe(table string, h repository.ChangeHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers[table] == nil {
		f.handlers[table] = make(map[int]repository.ChangeHandler)
	}
	id := f.next
	f.next++
	f.handlers[table][id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[table], id)
	}
}

func (f *memFeed) Emit(ev entity.ChangeEvent) {
	f.mu.Lock()
	hs := make([]repository.ChangeHandler, 0, len(f.handlers[ev.Table]))
	for _, h := range f.handlers[ev.Table] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *memFeed) handlerCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[table])
}
