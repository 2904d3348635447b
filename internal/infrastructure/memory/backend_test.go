package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
	"github.com/jhoicas/ventas-sync/internal/infrastructure/memory"
)

func TestEscrituras_PublicanCambios(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()

	var got []entity.ChangeEvent
	unsubP := b.Feed.Subscribe(entity.TableProducts, func(ev entity.ChangeEvent) { got = append(got, ev) })
	b.Feed.Subscribe(entity.TableSales, func(ev entity.ChangeEvent) { got = append(got, ev) })

	now := time.Now()
	require.NoError(t, b.Products().Create(ctx, &entity.Product{ID: "p1", Name: "Teh", Price: decimal.NewFromInt(5000), Stock: 3, CreatedAt: now}))
	updated, err := b.Stock().Set(ctx, "p1", 2)
	require.NoError(t, err)
	assert.True(t, updated)
	require.NoError(t, b.Sales().Create(ctx, &entity.Sale{ID: "s1", ProductID: "p1", Quantity: 1, Date: now}))
	deleted, err := b.Sales().Delete(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Len(t, got, 4)
	assert.Equal(t, entity.ChangeInsert, got[0].Type)
	assert.Equal(t, entity.ChangeUpdate, got[1].Type)
	assert.Equal(t, entity.TableSales, got[2].Table)
	assert.Equal(t, entity.ChangeDelete, got[3].Type)

	unsubP()
	unsubP()
	assert.Equal(t, 0, b.Feed.Subscribers(entity.TableProducts))
	assert.Equal(t, 1, b.Feed.Subscribers(entity.TableSales))
}

func TestStock_ProductoInexistente(t *testing.T) {
	b := memory.NewBackend()
	_, found, err := b.Stock().Get(context.Background(), "nada")
	require.NoError(t, err)
	assert.False(t, found)

	updated, err := b.Stock().Set(context.Background(), "nada", 3)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestListWithProduct_JoinYOrden(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, b.Products().Create(ctx, &entity.Product{ID: "p1", Name: "Teh", Price: decimal.NewFromInt(5000)}))
	require.NoError(t, b.Sales().Create(ctx, &entity.Sale{ID: "vieja", ProductID: "p1", Date: day}))
	require.NoError(t, b.Sales().Create(ctx, &entity.Sale{ID: "nueva", ProductID: "borrado", Date: day.Add(24 * time.Hour)}))

	list, err := b.Sales().ListWithProduct(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "nueva", list[0].ID)
	assert.Nil(t, list[0].Product)
	require.NotNil(t, list[1].Product)
	assert.Equal(t, "Teh", list[1].Product.Name)
}

func TestUsers_EmailUnico(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()
	require.NoError(t, b.Users().Create(ctx, &entity.User{ID: "u1", Email: "Ana@Tienda.com"}))
	assert.ErrorIs(t, b.Users().Create(ctx, &entity.User{ID: "u2", Email: "ana@tienda.com"}), domain.ErrEmailAlreadyExists)

	u, err := b.Users().GetByEmail(ctx, "ANA@tienda.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
}

func TestSessions_ListActive(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, b.Sessions().Create(ctx, &entity.Session{ID: "a", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, b.Sessions().Create(ctx, &entity.Session{ID: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, b.Sessions().Create(ctx, &entity.Session{ID: "vencida", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}))

	list, err := b.Sessions().ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}
