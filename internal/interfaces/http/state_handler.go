package http

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

// StateHandler expone la instantánea del store y su stream de cambios (server-sent events).
type StateHandler struct {
	heartbeat time.Duration
	done      <-chan struct{}
	log       *logger.Logger
}

// NewStateHandler construye el handler. Al cerrarse done se terminan los streams abiertos.
func NewStateHandler(heartbeat time.Duration, done <-chan struct{}, log *logger.Logger) *StateHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StateHandler{heartbeat: heartbeat, done: done, log: log.Component("state-stream")}
}

// Get godoc
// @Summary      Estado actual del store
// @Tags         state
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  syncstore.State
// @Router       /api/state [get]
func (h *StateHandler) Get(c *fiber.Ctx) error {
	return c.JSON(GetStore(c).State())
}

// Stream godoc
// @Summary      Stream de estados (text/event-stream)
// @Description  Envía un evento "state" con la instantánea inicial y otro tras cada cambio. Se cierra al cerrar la sesión.
// @Tags         state
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/state/stream [get]
func (h *StateHandler) Stream(c *fiber.Ctx) error {
	store := GetStore(c)
	userID := GetUserID(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Señal coalescida: si el cliente va lento solo recibe el último estado.
	updates := make(chan struct{}, 1)
	cancel := store.Watch(func(syncstore.State) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		h.log.Debug().Str("user_id", userID).Msg("stream abierto")
		defer h.log.Debug().Str("user_id", userID).Msg("stream cerrado")
		h.pump(w, store, updates)
	}))
	return nil
}

// pump escribe el estado inicial y luego uno por cada aviso de cambio, con
// heartbeats entre medio. Termina cuando el store queda sin identidad (también si
// ya estaba así al abrir), al apagar el servidor o cuando el cliente se va.
func (h *StateHandler) pump(w *bufio.Writer, store *syncstore.Store, updates <-chan struct{}) {
	st := store.State()
	if err := writeStateEvent(w, st); err != nil || st.Identity == "" {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-updates:
			st := store.State()
			if err := writeStateEvent(w, st); err != nil {
				return
			}
			if st.Identity == "" {
				return
			}
		}
	}
}

// writeStateEvent escribe un evento SSE "state" y hace flush; un error indica que el cliente se fue.
func writeStateEvent(w *bufio.Writer, st syncstore.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: state\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
