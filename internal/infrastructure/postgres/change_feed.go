package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

var _ repository.ChangeFeed = (*ChangeFeed)(nil)

// ChangeFeed escucha el canal de pg_notify que alimentan los triggers y reparte
// los eventos entre los handlers registrados por tabla. Usa una única conexión
// dedicada para el LISTEN, sin importar cuántos suscriptores haya.
type ChangeFeed struct {
	pool    *pgxpool.Pool
	channel string
	backoff time.Duration
	log     *logger.Logger

	mu       sync.RWMutex
	handlers map[string]map[uint64]repository.ChangeHandler
	nextID   uint64
}

// NewChangeFeed construye el change-feed. Run debe lanzarse en una goroutine.
func NewChangeFeed(pool *pgxpool.Pool, channel string, backoff time.Duration, log *logger.Logger) *ChangeFeed {
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &ChangeFeed{
		pool:     pool,
		channel:  channel,
		backoff:  backoff,
		log:      log.Component("change-feed"),
		handlers: make(map[string]map[uint64]repository.ChangeHandler),
	}
}

// Subscribe registra un handler para la tabla. La función devuelta es idempotente.
func (f *ChangeFeed) Subscribe(table string, handler repository.ChangeHandler) func() {
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

// Run mantiene el LISTEN hasta que ctx se cancele, reconectando tras cada caída.
// Después de una reconexión emite RESYNC a cada tabla con suscriptores.
func (f *ChangeFeed) Run(ctx context.Context) error {
	connected := false
	for {
		err := f.listen(ctx, func() {
			if connected {
				f.resync()
			}
			connected = true
		})
		if ctx.Err() != nil {
			return nil
		}
		f.log.Warn().Err(err).Dur("retry_in", f.backoff).Msg("change-feed desconectado")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.backoff):
		}
	}
}

func (f *ChangeFeed) listen(ctx context.Context, onListening func()) error {
	pc, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// La conexión queda fuera del pool: no debe volver con el LISTEN activo.
	conn := pc.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	f.log.Info().Str("channel", f.channel).Msg("escuchando cambios")
	onListening()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodeChange(n.Payload)
		if err != nil {
			f.log.Warn().Err(err).Str("payload", n.Payload).Msg("notificación ignorada")
			continue
		}
		f.Dispatch(ev)
	}
}

// Dispatch entrega el evento a los handlers de su tabla.
func (f *ChangeFeed) Dispatch(ev entity.ChangeEvent) {
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

func (f *ChangeFeed) resync() {
	f.mu.RLock()
	tables := make([]string, 0, len(f.handlers))
	for table, hs := range f.handlers {
		if len(hs) > 0 {
			tables = append(tables, table)
		}
	}
	f.mu.RUnlock()
	for _, table := range tables {
		f.Dispatch(entity.ChangeEvent{Table: table, Type: entity.ChangeResync, ReceivedAt: time.Now()})
	}
}

func decodeChange(payload string) (entity.ChangeEvent, error) {
	var ev entity.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode payload: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return ev, fmt.Errorf("payload incompleto")
	}
	ev.ReceivedAt = time.Now()
	return ev, nil
}
