package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

// Locals keys que deja el AuthMiddleware en Fiber.
const (
	LocalUserID    = "user_id"
	LocalSessionID = "session_id"
	LocalToken     = "token"
)

// sessionValidator lo implementa *auth.UseCase.
type sessionValidator interface {
	GetSession(ctx context.Context, token string) (*entity.Session, error)
}

// AuthMiddleware valida el Bearer Token contra la sesión persistida y deja
// UserID, SessionID y el token en c.Locals.
func AuthMiddleware(sessions sessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, bad := bearerToken(c)
		if bad != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(bad)
		}
		session, err := sessions.GetSession(c.UserContext(), tokenString)
		if err != nil {
			return writeError(c, err)
		}
		c.Locals(LocalUserID, session.UserID)
		c.Locals(LocalSessionID, session.ID)
		c.Locals(LocalToken, tokenString)
		return c.Next()
	}
}

// bearerToken extrae el token del header Authorization.
func bearerToken(c *fiber.Ctx) (string, *dto.ErrorResponse) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
	}
	return tokenString, nil
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return localString(c, LocalUserID)
}

// GetToken devuelve el token de la petición (después del middleware de auth).
func GetToken(c *fiber.Ctx) string {
	return localString(c, LocalToken)
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
