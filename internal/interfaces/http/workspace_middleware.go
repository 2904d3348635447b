package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
)

// LocalStore key del store del usuario en c.Locals.
const LocalStore = "store"

// storeProvider lo implementa *workspace.Manager.
type storeProvider interface {
	Store(userID string) (*syncstore.Store, error)
}

// RequireWorkspace resuelve el store del usuario autenticado y lo deja en c.Locals.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalUserID).
func RequireWorkspace(stores storeProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "user_id no encontrado en la sesión",
			})
		}
		store, err := stores.Store(userID)
		if err != nil {
			return writeError(c, err)
		}
		c.Locals(LocalStore, store)
		return c.Next()
	}
}

// GetStore devuelve el store resuelto por RequireWorkspace.
func GetStore(c *fiber.Ctx) *syncstore.Store {
	s, _ := c.Locals(LocalStore).(*syncstore.Store)
	return s
}
