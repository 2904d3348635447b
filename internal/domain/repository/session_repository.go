package repository

import (
	"context"
	"time"

	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// SessionRepository persiste las sesiones para poder revocarlas y rehidratarlas al arrancar.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ListActive devuelve las sesiones que vencen después de now.
	ListActive(ctx context.Context, now time.Time) ([]*entity.Session, error)
}
