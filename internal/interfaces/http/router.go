package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/portfolio-status-api/internal/application/auth"
	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog     *catalog.Service
	Portfolio   *portfolio.Service
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
	StoreDriver string
	Metrics     http.Handler // opcional; expone /metrics
	Log         *logger.Logger
}

const (
	roleAdmin  = entity.RoleAdmin
	roleEditor = entity.RoleEditor
)

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Use(RequestLogger(log))

	app.Get("/health", healthHandler(deps.Portfolio, deps.StoreDriver))
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, log)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(roleAdmin, roleEditor)
	admins := RequireRole(roleAdmin)

	users := protected.Group("/users", admins)
	users.Get("/", authHandler.ListUsers)
	users.Post("/", authHandler.CreateUser)

	cat := NewCatalogHandler(deps.Catalog, log)

	countries := protected.Group("/countries")
	countries.Get("/", cat.ListCountries)
	countries.Post("/", writers, cat.CreateCountry)
	countries.Put("/:id", writers, cat.UpdateCountry)
	countries.Delete("/:id", admins, cat.DeleteCountry)

	procedures := protected.Group("/procedures")
	procedures.Get("/", cat.ListProcedures)
	procedures.Put("/", admins, cat.SaveProcedures)
	procedures.Post("/", writers, cat.CreateProcedure)
	procedures.Put("/:id", writers, cat.UpdateProcedure)
	procedures.Delete("/:id", admins, cat.DeleteProcedure)

	productTypes := protected.Group("/product-types")
	productTypes.Get("/", cat.ListProductTypes)
	productTypes.Post("/", writers, cat.CreateProductType)
	productTypes.Put("/:id", writers, cat.UpdateProductType)
	productTypes.Delete("/:id", admins, cat.DeleteProductType)

	products := protected.Group("/products")
	products.Get("/", cat.ListProducts)
	products.Put("/", admins, cat.SaveProducts)
	products.Post("/", writers, cat.CreateProduct)
	products.Put("/:id", writers, cat.UpdateProduct)
	products.Delete("/:id", admins, cat.DeleteProduct)

	statuses := protected.Group("/statuses")
	statuses.Get("/", cat.ListStatuses)
	statuses.Put("/", admins, cat.SaveStatuses)
	statuses.Post("/", writers, cat.CreateStatus)
	statuses.Put("/:id", writers, cat.UpdateStatus)
	statuses.Delete("/:id", admins, cat.DeleteStatus)

	pf := NewPortfolioHandler(deps.Portfolio, log)
	protected.Get("/status-portfolios", pf.StatusPortfolios)

	view := protected.Group("/portfolio")
	view.Get("/view", pf.View)
	view.Get("/export.csv", pf.ExportCSV)
	view.Get("/report.pdf", pf.ReportPDF)
	view.Put("/status", writers, pf.UpdateStatus)
	view.Post("/status/bulk", writers, pf.BulkUpdateStatus)
	view.Post("/refresh", writers, pf.Refresh)
	view.Post("/rebuild", admins, pf.Rebuild)
	view.Post("/snapshots", admins, pf.Snapshot)
}

// healthHandler 200 si el store responde; 503 si no.
func healthHandler(svc *portfolio.Service, driver string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := svc.GetLastUpdate(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Store: driver})
		}
		return c.JSON(dto.HealthResponse{Status: "ok", Store: driver})
	}
}

// RequestLogger registra método, ruta, status y latencia de cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		ev := log.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user", GetUsername(c)).
			Msg("petición")
		return err
	}
}
