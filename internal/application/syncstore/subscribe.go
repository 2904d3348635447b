package syncstore

import (
	"context"
	"sync"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// Unsubscribe cancela una suscripción. Es idempotente, pero debe invocarse al
// desmontar: si no, el registro en el change-feed queda vivo.
type Unsubscribe func()

func noop() {}

// SubscribeToProducts refresca los productos (recarga completa) ante cada cambio en la tabla.
// Sin identidad devuelve un no-op.
func (s *Store) SubscribeToProducts() Unsubscribe {
	return s.subscribe(entity.TableProducts, s.FetchProducts)
}

// SubscribeToSales refresca las ventas ante cada cambio en la tabla.
func (s *Store) SubscribeToSales() Unsubscribe {
	return s.subscribe(entity.TableSales, s.FetchSales)
}

// subscribe conecta el change-feed con un único consumidor: los eventos solo
// encolan una señal de "recargar" (canal de capacidad 1, se coalescen ráfagas),
// así dos recargas de la misma suscripción nunca se solapan.
func (s *Store) subscribe(table string, fetch func(context.Context) error) Unsubscribe {
	if s.Identity() == "" {
		s.log.Debug().Str("table", table).Msg("sin identidad, se omite la suscripción")
		return noop
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				if err := fetch(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn().Err(err).Str("table", table).Msg("recarga por cambio remoto fallida")
				}
			}
		}
	}()

	unregister := s.feed.Subscribe(table, func(ev entity.ChangeEvent) {
		s.log.Debug().Str("table", table).Str("type", ev.Type).Msg("cambio detectado")
		select {
		case signals <- struct{}{}:
		default: // ya hay una recarga pendiente
		}
	})
	s.log.Info().Str("table", table).Msg("suscrito a cambios")

	var once sync.Once
	return func() {
		once.Do(func() {
			unregister()
			cancel()
			<-done
			s.log.Info().Str("table", table).Msg("suscripción cancelada")
		})
	}
}
