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

	"github.com/jhoicas/portfolio-status-api/internal/application/auth"
	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/events"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/observability"
	infrapdf "github.com/jhoicas/portfolio-status-api/internal/infrastructure/pdf"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/s3export"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/store"
	httpRouter "github.com/jhoicas/portfolio-status-api/internal/interfaces/http"
	"github.com/jhoicas/portfolio-status-api/pkg/config"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.App.Name, cfg.App.Env, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	baseStore, err := store.Open(ctx, cfg, log.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir store de colecciones")
	}
	defer baseStore.Close()

	metrics := observability.NewMetrics()
	collections := observability.NewStore(baseStore, metrics)

	// Bus de invalidación: local en una sola instancia, NATS cuando hay varias.
	var bus portfolio.InvalidationBus
	switch cfg.Events.Driver {
	case config.EventsNATS:
		nb, err := events.NewNATSBus(cfg.Events.NATSURL, cfg.Events.Subject, cfg.App.Name, log)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.Events.NATSURL).Msg("conexión a NATS")
		}
		bus = nb
	default:
		bus = events.NewLocalBus()
	}
	defer bus.Close()

	opts := []portfolio.Option{
		portfolio.WithLogger(log),
		portfolio.WithBus(bus),
		portfolio.WithMetrics(metrics),
		portfolio.WithCacheTTL(cfg.Cache.TTL),
		portfolio.WithConflictRetries(cfg.Store.ConflictRetries),
		portfolio.WithReportRenderer(infrapdf.NewRenderer(cfg.App.Name)),
	}
	if cfg.Export.Enabled() {
		sink, err := s3export.New(ctx, s3export.Config{
			Bucket:    cfg.Export.S3Bucket,
			Region:    cfg.Export.S3Region,
			Endpoint:  cfg.Export.S3Endpoint,
			PathStyle: cfg.Export.S3PathStyle,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("configurar exportación S3")
		}
		opts = append(opts, portfolio.WithSnapshotSink(sink, cfg.Export.S3Prefix))
	}
	portfolioSvc := portfolio.NewService(collections, opts...)

	stopListening, err := portfolioSvc.Listen()
	if err != nil {
		log.Fatal().Err(err).Msg("suscripción al bus de invalidación")
	}
	defer stopListening()

	// Migraciones de arranque: estados None y Ready to be Ordered.
	if err := portfolioSvc.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migraciones de arranque")
	}

	catalogSvc := catalog.NewService(portfolioSvc, log)
	authUC := auth.NewAuthUseCase(portfolioSvc.Runner(), auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log)
	if created, err := authUC.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal().Err(err).Msg("crear administrador inicial")
	} else if created {
		log.Info().Str("username", cfg.Admin.Username).Msg("administrador inicial creado")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Portfolio Status API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Catalog:     catalogSvc,
		Portfolio:   portfolioSvc,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
		StoreDriver: cfg.Store.Driver,
		Metrics:     metrics.Handler(),
		Log:         log,
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
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
