package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-sync/internal/application/auth"
	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/pkg/jwt"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

const testSecret = "secreto-de-pruebas"

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*entity.User
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*entity.Session
}

func (m *memSessions) Create(_ context.Context, s *entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memSessions) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	delete(m.byID, id)
	return ok, nil
}

func (m *memSessions) ListActive(_ context.Context, now time.Time) ([]*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Session
	for _, s := range m.byID {
		if !s.Expired(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newUseCase(t *testing.T) (*auth.UseCase, *memSessions, *[]entity.AuthEvent) {
	t.Helper()
	sessions := &memSessions{byID: map[string]*entity.Session{}}
	uc := auth.NewUseCase(
		&memUsers{byID: map[string]*entity.User{}},
		sessions,
		auth.JWTConfig{Secret: testSecret, ExpMinutes: 60, Issuer: "ventas-sync"},
		logger.Nop(),
	)
	var events []entity.AuthEvent
	uc.OnAuthStateChange(func(ev entity.AuthEvent) { events = append(events, ev) })
	return uc, sessions, &events
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro y login
// ──────────────────────────────────────────────────────────────────────────────

func TestSignUp_CreaSesionYEmiteSignedIn(t *testing.T) {
	uc, _, events := newUseCase(t)

	res, err := uc.SignUp(context.Background(), "  Ana@Tienda.com ", "secreto1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ana@tienda.com", res.User.Email)

	claims, err := jwt.Parse(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	require.Len(t, *events, 1)
	assert.Equal(t, entity.AuthSignedIn, (*events)[0].Type)
	assert.Equal(t, res.User.ID, (*events)[0].Session.UserID)
}

func TestSignUp_Validaciones(t *testing.T) {
	uc, _, events := newUseCase(t)
	ctx := context.Background()

	_, err := uc.SignUp(ctx, "no-es-email", "secreto1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.SignUp(ctx, "ana@tienda.com", "12345")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.SignUp(ctx, "ana@tienda.com", "123456")
	require.NoError(t, err)
	_, err = uc.SignUp(ctx, "ANA@tienda.com", "otra-clave")
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	assert.Len(t, *events, 1)
}

func TestSignInWithPassword(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()
	_, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	res, err := uc.SignInWithPassword(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = uc.SignInWithPassword(ctx, "ana@tienda.com", "incorrecta")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = uc.SignInWithPassword(ctx, "nadie@tienda.com", "secreto1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sesión
// ──────────────────────────────────────────────────────────────────────────────

func TestGetSessionYGetUser(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()
	res, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	session, err := uc.GetSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.UserID)

	user, err := uc.GetUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@tienda.com", user.Email)

	_, err = uc.GetSession(ctx, "token-basura")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestGetSession_SesionVencidaEnLaDB(t *testing.T) {
	uc, sessions, _ := newUseCase(t)
	ctx := context.Background()
	res, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	sessions.mu.Lock()
	for _, s := range sessions.byID {
		s.ExpiresAt = time.Now().Add(-time.Minute)
	}
	sessions.mu.Unlock()

	_, err = uc.GetSession(ctx, res.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignOut_RevocaYEmiteSignedOut(t *testing.T) {
	uc, _, events := newUseCase(t)
	ctx := context.Background()
	res, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	require.NoError(t, uc.SignOut(ctx, res.Token))
	require.Len(t, *events, 2)
	assert.Equal(t, entity.AuthSignedOut, (*events)[1].Type)

	_, err = uc.GetSession(ctx, res.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// El token ya no tiene sesión: no hay segundo SIGNED_OUT.
	assert.ErrorIs(t, uc.SignOut(ctx, res.Token), domain.ErrUnauthenticated)
	assert.Len(t, *events, 2)
}

func TestSignOut_SesionVencidaIgualEmiteSignedOut(t *testing.T) {
	uc, sessions, events := newUseCase(t)
	ctx := context.Background()
	res, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	sessions.mu.Lock()
	for _, s := range sessions.byID {
		s.ExpiresAt = time.Now().Add(-time.Minute)
	}
	sessions.mu.Unlock()

	_, err = uc.GetSession(ctx, res.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	require.NoError(t, uc.SignOut(ctx, res.Token))
	require.Len(t, *events, 2)
	assert.Equal(t, entity.AuthSignedOut, (*events)[1].Type)
	assert.Equal(t, res.User.ID, (*events)[1].Session.UserID)

	sessions.mu.Lock()
	assert.Empty(t, sessions.byID, "la sesión vencida se borra")
	sessions.mu.Unlock()
}

func TestSignOut_TokenVencidoIgualEmiteSignedOut(t *testing.T) {
	uc, sessions, events := newUseCase(t)
	ctx := context.Background()
	res, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)

	// Token con la misma sesión pero ya expirado.
	session := (*events)[0].Session
	expired, err := jwt.Generate(testSecret, session.ID, session.UserID, res.User.Email, "ventas-sync", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	require.NoError(t, uc.SignOut(ctx, expired))
	require.Len(t, *events, 2)
	assert.Equal(t, entity.AuthSignedOut, (*events)[1].Type)

	sessions.mu.Lock()
	assert.Empty(t, sessions.byID)
	sessions.mu.Unlock()

	_, err = jwt.Parse(testSecret, expired)
	assert.Error(t, err)
	assert.ErrorIs(t, uc.SignOut(ctx, "token-basura"), domain.ErrUnauthenticated)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listeners y restauración
// ──────────────────────────────────────────────────────────────────────────────

func TestOnAuthStateChange_UnsubscribeIdempotente(t *testing.T) {
	uc, _, _ := newUseCase(t)
	calls := 0
	unsub := uc.OnAuthStateChange(func(entity.AuthEvent) { calls++ })

	_, err := uc.SignUp(context.Background(), "ana@tienda.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	unsub()
	unsub()
	_, err = uc.SignInWithPassword(context.Background(), "ana@tienda.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRestore_EmiteInitialSessionPorSesionVigente(t *testing.T) {
	uc, sessions, events := newUseCase(t)
	ctx := context.Background()
	_, err := uc.SignUp(ctx, "ana@tienda.com", "secreto1")
	require.NoError(t, err)
	_, err = uc.SignUp(ctx, "beto@tienda.com", "secreto2")
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, &entity.Session{
		ID: "vencida", UserID: "x", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	*events = nil

	n, err := uc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, *events, 2)
	for _, ev := range *events {
		assert.Equal(t, entity.AuthInitialSession, ev.Type)
	}
}
