package http

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// PortfolioHandler vista de estados, actualizaciones y exportaciones.
type PortfolioHandler struct {
	svc *portfolio.Service
	log *logger.Logger
}

// NewPortfolioHandler construye el handler.
func NewPortfolioHandler(svc *portfolio.Service, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{svc: svc, log: log}
}

// View godoc
// @Summary      Vista de estados del portafolio
// @Tags         portfolio
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PortfolioViewResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/portfolio/view [get]
func (h *PortfolioHandler) View(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rows, err := h.svc.GetPortfolioStatusView(ctx)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.PortfolioViewResponse{Items: rows}
	if last, err := h.svc.GetLastUpdate(ctx); err == nil && !last.IsZero() {
		out.LastUpdate = &last
	}
	return c.JSON(out)
}

// StatusPortfolios godoc
// @Summary      Listar asignaciones de estado
// @Tags         portfolio
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ListResponse[entity.StatusPortfolio]
// @Router       /api/status-portfolios [get]
func (h *PortfolioHandler) StatusPortfolios(c *fiber.Ctx) error {
	items, err := h.svc.GetStatusPortfolios(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewListResponse(items))
}

// UpdateStatus godoc
// @Summary      Cambiar el estado de un producto en un país
// @Description  statusId vacío elimina la asignación.
// @Tags         portfolio
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StatusUpdateRequest  true  "Cambio de estado"
// @Success      200   {object}  portfolio.BulkResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/portfolio/status [put]
func (h *PortfolioHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.StatusUpdateRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdateStatus(c.UserContext(), toStatusUpdate(in))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// BulkUpdateStatus godoc
// @Summary      Aplicar un lote de cambios de estado
// @Description  Las asignaciones con referencias inexistentes se guardan y se informan en dangling.
// @Tags         portfolio
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkStatusUpdateRequest  true  "Lote"
// @Success      200   {object}  portfolio.BulkResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/portfolio/status/bulk [post]
func (h *PortfolioHandler) BulkUpdateStatus(c *fiber.Ctx) error {
	var in dto.BulkStatusUpdateRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	updates := make([]portfolio.StatusUpdate, 0, len(in.Updates))
	for _, u := range in.Updates {
		updates = append(updates, toStatusUpdate(u))
	}
	out, err := h.svc.BulkUpdateStatus(c.UserContext(), updates)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info().Str("by", GetUsername(c)).Int("applied", out.Applied).Int("removed", out.Removed).
		Int("skipped", len(out.Skipped)).Int("dangling", len(out.Dangling)).Msg("lote de estados aplicado")
	return c.JSON(out)
}

// Refresh godoc
// @Summary      Marcar la vista como actualizada
// @Tags         portfolio
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RefreshResponse
// @Router       /api/portfolio/refresh [post]
func (h *PortfolioHandler) Refresh(c *fiber.Ctx) error {
	at, err := h.svc.RefreshCache(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RefreshResponse{LastUpdate: at})
}

// Rebuild godoc
// @Summary      Reconstruir la vista completa
// @Tags         portfolio
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  portfolio.RebuildResult
// @Router       /api/portfolio/rebuild [post]
func (h *PortfolioHandler) Rebuild(c *fiber.Ctx) error {
	out, err := h.svc.RebuildPortfolioStatusView(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// ExportCSV godoc
// @Summary      Exportar la vista en CSV
// @Tags         portfolio
// @Security     Bearer
// @Produce      text/csv
// @Success      200
// @Router       /api/portfolio/export.csv [get]
func (h *PortfolioHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(c.UserContext(), &buf); err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="portfolio-status-`+time.Now().UTC().Format("20060102")+`.csv"`)
	return c.Send(buf.Bytes())
}

// ReportPDF godoc
// @Summary      Reporte PDF de la vista
// @Tags         portfolio
// @Security     Bearer
// @Produce      application/pdf
// @Success      200
// @Router       /api/portfolio/report.pdf [get]
func (h *PortfolioHandler) ReportPDF(c *fiber.Ctx) error {
	doc, err := h.svc.RenderReport(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="portfolio-status.pdf"`)
	return c.Send(doc)
}

// Snapshot godoc
// @Summary      Exportar snapshot JSON al bucket configurado
// @Tags         portfolio
// @Security     Bearer
// @Produce      json
// @Success      201  {object}  dto.SnapshotResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/portfolio/snapshots [post]
func (h *PortfolioHandler) Snapshot(c *fiber.Ctx) error {
	loc, err := h.svc.ExportSnapshot(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SnapshotResponse{Location: loc})
}

func toStatusUpdate(in dto.StatusUpdateRequest) portfolio.StatusUpdate {
	return portfolio.StatusUpdate{
		ProductID: in.ProductID,
		CountryID: in.CountryID,
		StatusID:  in.StatusID,
		SetsQty:   in.SetsQty,
		Notes:     in.Notes,
	}
}
