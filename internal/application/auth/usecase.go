// Package auth implementa los accesores de sesión del backend: registro, login,
// logout, consulta de la sesión y suscripción a los cambios de estado.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
	"github.com/jhoicas/ventas-sync/pkg/jwt"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

const minPasswordLen = 6

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Listener recibe los cambios de estado de autenticación. Se invoca de forma síncrona.
type Listener func(entity.AuthEvent)

// UseCase casos de uso de autenticación.
type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	jwtCfg   JWTConfig
	log      *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewUseCase construye el caso de uso de auth.
func NewUseCase(users repository.UserRepository, sessions repository.SessionRepository, jwtCfg JWTConfig, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	if jwtCfg.ExpMinutes <= 0 {
		jwtCfg.ExpMinutes = 1440
	}
	return &UseCase{
		users:     users,
		sessions:  sessions,
		jwtCfg:    jwtCfg,
		log:       log.Component("auth"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// SignUp crea el usuario (bcrypt) y abre una sesión. Emite SIGNED_IN.
func (uc *UseCase) SignUp(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: la contraseña debe tener al menos %d caracteres", domain.ErrValidation, minPasswordLen)
	}
	existing, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    uc.now(),
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	uc.log.Info().Str("user_id", user.ID).Msg("usuario registrado")
	return uc.openSession(ctx, user)
}

// SignInWithPassword verifica email/password y abre una sesión. Emite SIGNED_IN.
// Email desconocido y password incorrecto devuelven el mismo error.
func (uc *UseCase) SignInWithPassword(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.log.Info().Str("user_id", user.ID).Msg("password incorrecto")
		return nil, domain.ErrInvalidCredentials
	}
	return uc.openSession(ctx, user)
}

func (uc *UseCase) openSession(ctx context.Context, user *entity.User) (*dto.AuthResponse, error) {
	now := uc.now()
	session := &entity.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(uc.jwtCfg.ExpMinutes) * time.Minute),
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, session.ID, user.ID, user.Email, uc.jwtCfg.Issuer, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	uc.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("sesión iniciada")
	uc.emit(entity.AuthEvent{Type: entity.AuthSignedIn, Session: *session})
	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserResponse(user),
	}, nil
}

// SignOut revoca la sesión del token. Acepta tokens y sesiones vencidas para que
// el cierre siempre desmonte lo que la sesión dejó abierto. Una sesión ya
// inexistente devuelve ErrUnauthenticated y no emite eventos.
func (uc *UseCase) SignOut(ctx context.Context, token string) error {
	claims, err := jwt.ParseIgnoringExpiry(uc.jwtCfg.Secret, token)
	if err != nil {
		return domain.ErrUnauthenticated
	}
	session, err := uc.sessions.GetByID(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if session == nil || session.UserID != claims.UserID {
		return domain.ErrUnauthenticated
	}
	deleted, err := uc.sessions.Delete(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if !deleted {
		return nil
	}
	uc.log.Info().Str("user_id", session.UserID).Str("session_id", session.ID).
		Bool("expired", session.Expired(uc.now())).Msg("sesión cerrada")
	uc.emit(entity.AuthEvent{Type: entity.AuthSignedOut, Session: *session})
	return nil
}

// GetSession valida el token y devuelve la sesión persistida si sigue vigente.
func (uc *UseCase) GetSession(ctx context.Context, token string) (*entity.Session, error) {
	claims, err := jwt.Parse(uc.jwtCfg.Secret, token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	session, err := uc.sessions.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if session == nil || session.UserID != claims.UserID || session.Expired(uc.now()) {
		return nil, domain.ErrUnauthenticated
	}
	return session, nil
}

// GetUser devuelve el usuario dueño de la sesión.
func (uc *UseCase) GetUser(ctx context.Context, token string) (*dto.UserResponse, error) {
	session, err := uc.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	out := toUserResponse(user)
	return &out, nil
}

// OnAuthStateChange registra un listener. La función devuelta es idempotente.
func (uc *UseCase) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	uc.mu.Lock()
	id := uc.nextID
	uc.nextID++
	uc.listeners[id] = fn
	uc.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			uc.mu.Lock()
			delete(uc.listeners, id)
			uc.mu.Unlock()
		})
	}
}

// Restore emite INITIAL_SESSION por cada sesión persistida que sigue vigente.
// Se llama al arrancar, después de registrar los listeners.
func (uc *UseCase) Restore(ctx context.Context) (int, error) {
	list, err := uc.sessions.ListActive(ctx, uc.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
	}
	for _, s := range list {
		uc.emit(entity.AuthEvent{Type: entity.AuthInitialSession, Session: *s})
	}
	if len(list) > 0 {
		uc.log.Info().Int("sessions", len(list)).Msg("sesiones restauradas")
	}
	return len(list), nil
}

func (uc *UseCase) emit(ev entity.AuthEvent) {
	uc.mu.Lock()
	fns := make([]Listener, 0, len(uc.listeners))
	for _, fn := range uc.listeners {
		fns = append(fns, fn)
	}
	uc.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email inválido", domain.ErrValidation)
	}
	return email, nil
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
