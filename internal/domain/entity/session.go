package entity

import "time"

// Session sesión persistida; el token JWT entregado al cliente lleva su ID.
type Session struct {
	ID        string
	UserID    string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired indica si la sesión ya venció en el instante dado.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Tipos de evento de autenticación.
const (
	AuthInitialSession = "INITIAL_SESSION"
	AuthSignedIn       = "SIGNED_IN"
	AuthSignedOut      = "SIGNED_OUT"
)

// AuthEvent cambio de estado de autenticación.
type AuthEvent struct {
	Type    string
	Session Session
}
