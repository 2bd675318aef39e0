package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/application/ports"
	"github.com/jhoicas/prestamos-api/internal/application/query"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/memory"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/prestamos-api/internal/infrastructure/pdf"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/redisstore"
	httpRouter "github.com/jhoicas/prestamos-api/internal/interfaces/http"
	"github.com/jhoicas/prestamos-api/pkg/config"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

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
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var st *storage
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		st = newMemoryStorage(cfg)
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		st, err = newPostgresStorage(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
	}
	defer st.close()

	// Redis: idempotencia compartida entre réplicas y canal de eventos.
	// Sin Redis se usan la guarda en memoria y el log como destino.
	var idem ports.IdempotencyStore = memory.NewIdempotencyStore()
	var sink notify.Sink = notify.NewLogSink(log)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		idem = redisstore.NewIdempotencyStore(redisClient)
		sink = redisstore.NewPubSubSink(redisClient, cfg.Redis.Channel)
		log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("Redis habilitado")
	}

	dispatcher := notify.NewDispatcher(sink, log, notify.Config{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
	})

	ledger := inventory.NewStockLedger(st.tx, st.items, st.movements)
	engine := borrowing.NewWorkflowEngine(st.tx, ledger, st.items, dispatcher, log.WithComponent("workflow"), borrowing.Config{
		RetryAttempts:  cfg.Workflow.RetryAttempts,
		RetryBaseDelay: cfg.Workflow.RetryBaseDelay,
	})
	queries := query.NewService(st.requests, st.items, st.users)

	if st.seed != nil {
		st.seed(ctx, ledger, log)
	}

	sweeper := query.NewOverdueSweeper(st.requests, dispatcher, log, cfg.Overdue.Interval)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()
	if cfg.Overdue.Interval > 0 {
		log.Info().Dur("interval", cfg.Overdue.Interval).Msg("barrido de vencidas activo")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs (requiere `swag init` previo)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Préstamos API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:      engine,
		Ledger:      ledger,
		Queries:     queries,
		Slips:       infrapdf.NewMarotoSlipGenerator(cfg.App.Institution),
		Idempotency: idem,
		JWTSecret:   cfg.JWT.Secret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	<-sweepDone

	// Los eventos ya encolados se entregan antes de cerrar Redis.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("cola de notificaciones no vaciada a tiempo")
	}
	stats := dispatcher.Stats()
	log.Info().
		Int64("delivered", stats.Delivered).
		Int64("failed", stats.Failed).
		Int64("dropped", stats.Dropped).
		Msg("notificaciones")
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info().Msg("aplicación detenida")
}
