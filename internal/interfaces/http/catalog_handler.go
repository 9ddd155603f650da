package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// CatalogHandler CRUD de países, procedimientos, tipos de producto, productos y estados.
type CatalogHandler struct {
	svc *catalog.Service
	log *logger.Logger
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(svc *catalog.Service, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log}
}

// ─── Helpers genéricos ───────────────────────────────────────────────────────

func listAll[T any](h *CatalogHandler, c *fiber.Ctx, fn func(context.Context) ([]T, error)) error {
	items, err := fn(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewListResponse(items))
}

func createOne[In, Out any](h *CatalogHandler, c *fiber.Ctx, fn func(context.Context, In) (Out, error)) error {
	var in In
	if ok, err := bind(c, &in); !ok {
		return err
	}
	out, err := fn(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func updateOne[In, Out any](h *CatalogHandler, c *fiber.Ctx, fn func(context.Context, string, In) (Out, error)) error {
	var in In
	if ok, err := bind(c, &in); !ok {
		return err
	}
	out, err := fn(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

func deleteOne(h *CatalogHandler, c *fiber.Ctx, fn func(context.Context, string) error) error {
	if err := fn(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// saveAll reemplaza la colección completa con el arreglo del cuerpo y devuelve la vista reconstruida.
func saveAll[T any](h *CatalogHandler, c *fiber.Ctx, fn func(context.Context, []T) (portfolio.RebuildResult, error)) error {
	var items []T
	if err := c.BodyParser(&items); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "se esperaba un arreglo JSON"})
	}
	out, err := fn(c.UserContext(), items)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// ─── Países ──────────────────────────────────────────────────────────────────

// ListCountries godoc
// @Summary      Listar países
// @Tags         countries
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ListResponse[entity.Country]
// @Router       /api/countries [get]
func (h *CatalogHandler) ListCountries(c *fiber.Ctx) error {
	return listAll(h, c, h.svc.ListCountries)
}

// CreateCountry godoc
// @Summary      Crear país
// @Tags         countries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CountryRequest  true  "Datos del país"
// @Success      201   {object}  entity.Country
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/countries [post]
func (h *CatalogHandler) CreateCountry(c *fiber.Ctx) error {
	return createOne(h, c, h.svc.CreateCountry)
}

// UpdateCountry godoc
// @Summary      Actualizar país
// @Tags         countries
// @Security     Bearer
// @Router       /api/countries/{id} [put]
func (h *CatalogHandler) UpdateCountry(c *fiber.Ctx) error {
	return updateOne(h, c, h.svc.UpdateCountry)
}

// DeleteCountry godoc
// @Summary      Eliminar país
// @Tags         countries
// @Security     Bearer
// @Router       /api/countries/{id} [delete]
func (h *CatalogHandler) DeleteCountry(c *fiber.Ctx) error {
	return deleteOne(h, c, h.svc.DeleteCountry)
}

// ─── Procedimientos ──────────────────────────────────────────────────────────

func (h *CatalogHandler) ListProcedures(c *fiber.Ctx) error {
	return listAll(h, c, h.svc.ListProcedures)
}

func (h *CatalogHandler) CreateProcedure(c *fiber.Ctx) error {
	return createOne(h, c, h.svc.CreateProcedure)
}

func (h *CatalogHandler) UpdateProcedure(c *fiber.Ctx) error {
	return updateOne(h, c, h.svc.UpdateProcedure)
}

// DeleteProcedure 409 IN_USE si algún producto lo referencia.
func (h *CatalogHandler) DeleteProcedure(c *fiber.Ctx) error {
	return deleteOne(h, c, h.svc.DeleteProcedure)
}

// SaveProcedures godoc
// @Summary      Reemplazar todos los procedimientos
// @Tags         procedures
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  []entity.Procedure  true  "Colección completa"
// @Success      200   {object}  portfolio.RebuildResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/procedures [put]
func (h *CatalogHandler) SaveProcedures(c *fiber.Ctx) error {
	return saveAll(h, c, h.svc.SaveProcedures)
}

// ─── Tipos de producto ───────────────────────────────────────────────────────

func (h *CatalogHandler) ListProductTypes(c *fiber.Ctx) error {
	return listAll(h, c, h.svc.ListProductTypes)
}

func (h *CatalogHandler) CreateProductType(c *fiber.Ctx) error {
	return createOne(h, c, h.svc.CreateProductType)
}

func (h *CatalogHandler) UpdateProductType(c *fiber.Ctx) error {
	return updateOne(h, c, h.svc.UpdateProductType)
}

func (h *CatalogHandler) DeleteProductType(c *fiber.Ctx) error {
	return deleteOne(h, c, h.svc.DeleteProductType)
}

// ─── Productos ───────────────────────────────────────────────────────────────

// ListProducts godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ListResponse[entity.Product]
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	return listAll(h, c, h.svc.ListProducts)
}

// CreateProduct godoc
// @Summary      Crear producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProductRequest  true  "Datos del producto"
// @Success      201   {object}  entity.Product
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	return createOne(h, c, h.svc.CreateProduct)
}

func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	return updateOne(h, c, h.svc.UpdateProduct)
}

// DeleteProduct elimina también sus asignaciones de estado.
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	return deleteOne(h, c, h.svc.DeleteProduct)
}

func (h *CatalogHandler) SaveProducts(c *fiber.Ctx) error {
	return saveAll(h, c, h.svc.SaveProducts)
}

// ─── Estados ─────────────────────────────────────────────────────────────────

func (h *CatalogHandler) ListStatuses(c *fiber.Ctx) error {
	return listAll(h, c, h.svc.ListStatuses)
}

func (h *CatalogHandler) CreateStatus(c *fiber.Ctx) error {
	return createOne(h, c, h.svc.CreateStatus)
}

func (h *CatalogHandler) UpdateStatus(c *fiber.Ctx) error {
	return updateOne(h, c, h.svc.UpdateStatus)
}

// DeleteStatus el estado "None" no se puede eliminar.
func (h *CatalogHandler) DeleteStatus(c *fiber.Ctx) error {
	return deleteOne(h, c, h.svc.DeleteStatus)
}

func (h *CatalogHandler) SaveStatuses(c *fiber.Ctx) error {
	return saveAll(h, c, h.svc.SaveStatuses)
}
