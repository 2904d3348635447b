package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/ventas-sync/internal/application/auth"
	"github.com/jhoicas/ventas-sync/internal/application/report"
	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
	"github.com/jhoicas/ventas-sync/internal/application/workspace"
	"github.com/jhoicas/ventas-sync/internal/domain/repository"
	"github.com/jhoicas/ventas-sync/internal/infrastructure/memory"
	"github.com/jhoicas/ventas-sync/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/ventas-sync/internal/interfaces/http"
	"github.com/jhoicas/ventas-sync/pkg/config"
	"github.com/jhoicas/ventas-sync/pkg/logger"
)

// backend agrupa los puertos de persistencia según DB_DRIVER.
type backend struct {
	products repository.ProductRepository
	stock    repository.StockRepository
	sales    repository.SaleRepository
	users    repository.UserRepository
	sessions repository.SessionRepository
	feed     repository.ChangeFeed
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	be := openBackend(ctx, cfg, log)
	defer be.close()

	authUC := auth.NewUseCase(be.users, be.sessions, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log.Component("auth"))

	storeLog := log.Component("syncstore")
	manager := workspace.NewManager(ctx, func() *syncstore.Store {
		return syncstore.New(be.products, be.stock, be.sales, be.feed, storeLog)
	}, log.Component("workspace"))
	unsubscribe := authUC.OnAuthStateChange(manager.HandleAuthEvent)
	// Sesiones que vencen sin logout: sus stores se desmontan igual.
	go manager.RunSweeper(ctx, time.Minute)

	if _, err := authUC.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("restaurar sesiones")
	}

	reportUC := report.NewUseCase(cfg.Report.USDRate)

	// Sin WriteTimeout: el stream de estado es una respuesta de larga duración.
	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ReadTimeout: time.Second * 10,
		IdleTimeout: time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: log.Component("http").Writer(),
	}))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Ventas Sync API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "driver": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		Workspaces:      manager,
		ReportUC:        reportUC,
		StreamHeartbeat: time.Duration(cfg.HTTP.StreamHeartbeatSeconds) * time.Second,
		Done:            ctx.Done(),
		Log:             log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	// Cancelar primero corta los streams abiertos y el change-feed.
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	unsubscribe()
	manager.Close()

	log.Info().Msg("aplicación detenida")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) backend {
	if cfg.DB.Driver == "memory" {
		mem := memory.NewBackend()
		log.Warn().Msg("backend en memoria: los datos se pierden al reiniciar")
		return backend{
			products: mem.Products(),
			stock:    mem.Stock(),
			sales:    mem.Sales(),
			users:    mem.Users(),
			sessions: mem.Sessions(),
			feed:     mem.Feed,
			close:    func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if cfg.DB.Migrate {
		// El esquema se aplica completo o no se aplica.
		err := postgres.NewTxRunner(pool).Run(ctx, func(q postgres.Querier) error {
			return postgres.Migrate(ctx, q, cfg.Realtime.Channel)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("aplicar esquema")
		}
	}

	feed := postgres.NewChangeFeed(pool, cfg.Realtime.Channel,
		time.Duration(cfg.Realtime.ReconnectSeconds)*time.Second, log.Component("change_feed"))
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("change-feed detenido")
		}
	}()

	return backend{
		products: postgres.NewProductRepository(pool),
		stock:    postgres.NewStockRepository(pool),
		sales:    postgres.NewSaleRepository(pool),
		users:    postgres.NewUserRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		feed:     feed,
		close:    pool.Close,
	}
}
