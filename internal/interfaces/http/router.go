package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/auth"
	"github.com/jhoicas/ventas-sync/internal/application/report"
	"github.com/jhoicas/ventas-sync/internal/application/workspace"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC          *auth.UseCase
	Workspaces      *workspace.Manager
	ReportUC        *report.UseCase
	StreamHeartbeat time.Duration
	// Done al cerrarse termina los streams de estado abiertos (apagado ordenado).
	Done <-chan struct{}
	Log  *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/signup", authHandler.SignUp)
	authGroup.Post("/login", authHandler.Login)

	// logout valida el token por su cuenta: debe aceptar sesiones vencidas.
	authGroup.Post("/logout", authHandler.Logout)

	requireAuth := AuthMiddleware(deps.AuthUC)
	authGroup.Get("/me", requireAuth, authHandler.Me)

	// Rutas protegidas: sesión válida y store del usuario montado.
	protected := api.Group("/", requireAuth, RequireWorkspace(deps.Workspaces))

	stateHandler := NewStateHandler(deps.StreamHeartbeat, deps.Done, deps.Log)
	protected.Get("/state", stateHandler.Get)
	protected.Get("/state/stream", stateHandler.Stream)

	products := protected.Group("/products")
	productHandler := NewProductHandler()
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	sales := protected.Group("/sales")
	saleHandler := NewSaleHandler()
	sales.Get("/", saleHandler.List)
	sales.Post("/", saleHandler.Create)
	sales.Delete("/:id", saleHandler.Delete)

	reports := protected.Group("/reports")
	reportHandler := NewReportHandler(deps.ReportUC)
	reports.Get("/summary", reportHandler.Summary)
	reports.Get("/sales", reportHandler.Sales)
	reports.Get("/inventory", reportHandler.Inventory)
	reports.Get("/revenue", reportHandler.Revenue)
}
