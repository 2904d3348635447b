package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
	"github.com/jhoicas/ventas-sync/internal/domain"
)

func TestWriteError_Mapeo(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthenticated, 401, "UNAUTHENTICATED"},
		{domain.ErrInvalidCredentials, 401, "INVALID_CREDENTIALS"},
		{fmt.Errorf("get: %w", domain.ErrNotFound), 404, "NOT_FOUND"},
		{domain.ErrInsufficientStock, 409, "INSUFFICIENT_STOCK"},
		{domain.ErrEmailAlreadyExists, 409, "EMAIL_EXISTS"},
		{fmt.Errorf("%w: name es requerido", domain.ErrValidation), 400, "VALIDATION"},
		{fmt.Errorf("list: %w: %w", domain.ErrBackendFailure, fmt.Errorf("dial tcp 10.0.0.1:5432")), 502, "BACKEND_FAILURE"},
		{fmt.Errorf("otra cosa"), 500, "INTERNAL"},
	}
	for _, tc := range cases {
		app := fiber.New()
		err := tc.err
		app.Get("/", func(c *fiber.Ctx) error { return writeError(c, err) })

		resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil), -1)
		require.NoError(t, testErr)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		var e dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, tc.code, e.Code)
		if tc.code == "BACKEND_FAILURE" {
			assert.NotContains(t, e.Message, "10.0.0.1", "no se expone la causa interna")
		}
	}
}

func TestWriteStateEvent_FormatoSSE(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	st := syncstore.State{Identity: "u1", TotalSales: decimal.NewFromInt(20000)}

	require.NoError(t, writeStateEvent(w, st))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "event: state\ndata: "))
	require.True(t, strings.HasSuffix(out, "\n\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(out, "event: state\ndata: "), "\n\n")
	var got syncstore.State
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, "u1", got.Identity)
	assert.True(t, got.TotalSales.Equal(decimal.NewFromInt(20000)))
}
