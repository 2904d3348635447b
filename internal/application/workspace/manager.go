// Package workspace mantiene un SyncStore por usuario autenticado y lo monta o
// desmonta según los eventos de autenticación.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

// StoreFactory construye un store vacío y sin identidad.
type StoreFactory func() *syncstore.Store

type workspace struct {
	store *syncstore.Store
	// sesiones abiertas del usuario -> vencimiento (cero: no vence)
	sessions map[string]time.Time

	// Las escribe attach al terminar de montar; nil mientras tanto.
	unsubProducts syncstore.Unsubscribe
	unsubSales    syncstore.Unsubscribe
}

// Manager stores por usuario. Un usuario con varias sesiones abiertas comparte el store;
// se desmonta cuando cierra o vence la última. mu solo protege el mapa: las cargas y
// los desmontajes corren fuera del lock.
type Manager struct {
	newStore StoreFactory
	log      *logger.Logger
	ctx      context.Context

	mu    sync.Mutex
	items map[string]*workspace
}

// NewManager construye el manager. ctx acota las cargas iniciales y finales de cada store.
func NewManager(ctx context.Context, newStore StoreFactory, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		newStore: newStore,
		log:      log.Component("workspace"),
		ctx:      ctx,
		items:    make(map[string]*workspace),
	}
}

// HandleAuthEvent aplica un cambio de autenticación. Se registra con OnAuthStateChange.
func (m *Manager) HandleAuthEvent(ev entity.AuthEvent) {
	switch ev.Type {
	case entity.AuthInitialSession, entity.AuthSignedIn:
		m.attach(ev.Session)
	case entity.AuthSignedOut:
		m.detach(ev.Session)
	}
}

func (m *Manager) attach(s entity.Session) {
	m.mu.Lock()
	if ws, ok := m.items[s.UserID]; ok {
		ws.sessions[s.ID] = s.ExpiresAt
		m.mu.Unlock()
		return
	}
	store := m.newStore()
	store.SetIdentity(s.UserID)
	ws := &workspace{store: store, sessions: map[string]time.Time{s.ID: s.ExpiresAt}}
	m.items[s.UserID] = ws
	m.mu.Unlock()

	if err := store.FetchProducts(m.ctx); err != nil {
		m.log.Warn().Err(err).Str("user_id", s.UserID).Msg("carga inicial de productos fallida")
	}
	if err := store.FetchSales(m.ctx); err != nil {
		m.log.Warn().Err(err).Str("user_id", s.UserID).Msg("carga inicial de ventas fallida")
	}
	unsubProducts := store.SubscribeToProducts()
	unsubSales := store.SubscribeToSales()

	m.mu.Lock()
	mounted := m.items[s.UserID] == ws
	if mounted {
		ws.unsubProducts, ws.unsubSales = unsubProducts, unsubSales
	}
	m.mu.Unlock()

	if !mounted {
		// Se cerró la sesión mientras cargaba: detach ya lo sacó del mapa.
		unsubProducts()
		unsubSales()
		m.clear(ws)
		return
	}
	m.log.Info().Str("user_id", s.UserID).Msg("workspace montado")
}

func (m *Manager) detach(s entity.Session) {
	m.mu.Lock()
	ws, ok := m.items[s.UserID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(ws.sessions, s.ID)
	if len(ws.sessions) > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.items, s.UserID)
	m.mu.Unlock()

	m.teardown(ws)
	m.log.Info().Str("user_id", s.UserID).Msg("workspace desmontado")
}

// Sweep descarta las sesiones vencidas en now y desmonta los stores que quedan sin
// sesiones. Devuelve cuántos stores desmontó.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	gone := make(map[string]*workspace)
	for userID, ws := range m.items {
		for id, exp := range ws.sessions {
			if !exp.IsZero() && !now.Before(exp) {
				delete(ws.sessions, id)
			}
		}
		if len(ws.sessions) == 0 {
			delete(m.items, userID)
			gone[userID] = ws
		}
	}
	m.mu.Unlock()

	for userID, ws := range gone {
		m.teardown(ws)
		m.log.Info().Str("user_id", userID).Msg("workspace desmontado por sesión vencida")
	}
	return len(gone)
}

// RunSweeper llama a Sweep cada interval hasta que ctx se cancele.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// teardown cancela las suscripciones (si attach llegó a registrarlas) y vacía el store.
// El workspace ya no está en el mapa.
func (m *Manager) teardown(ws *workspace) {
	m.mu.Lock()
	unsubProducts, unsubSales := ws.unsubProducts, ws.unsubSales
	m.mu.Unlock()
	if unsubProducts != nil {
		unsubProducts()
	}
	if unsubSales != nil {
		unsubSales()
	}
	m.clear(ws)
}

// clear quita la identidad y recarga, lo que vacía las colecciones.
func (m *Manager) clear(ws *workspace) {
	ws.store.SetIdentity("")
	_ = ws.store.FetchProducts(m.ctx)
	_ = ws.store.FetchSales(m.ctx)
}

// Store devuelve el store del usuario o ErrUnauthenticated si no tiene sesión montada.
func (m *Manager) Store(userID string) (*syncstore.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.items[userID]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return ws.store, nil
}

// Close desmonta todos los stores.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*workspace, 0, len(m.items))
	for userID, ws := range m.items {
		all = append(all, ws)
		delete(m.items, userID)
	}
	m.mu.Unlock()

	for _, ws := range all {
		m.teardown(ws)
	}
	m.log.Info().Msg("workspaces cerrados")
}
