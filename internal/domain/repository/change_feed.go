package repository

import "github.com/jhoicas/ventas-sync/internal/domain/entity"

// ChangeHandler recibe los eventos de una tabla. Debe retornar rápido: se invoca
// desde el loop del change-feed.
type ChangeHandler func(entity.ChangeEvent)

// ChangeFeed suscripción a los cambios (insert/update/delete) de una tabla.
type ChangeFeed interface {
	// Subscribe registra el handler y devuelve la función para des-registrarlo.
	// La función devuelta es idempotente.
	Subscribe(table string, handler ChangeHandler) (unsubscribe func())
}
