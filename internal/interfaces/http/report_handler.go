package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/application/report"
	"github.com/jhoicas/ventas-sync/internal/domain"
)

// ReportHandler maneja el resumen del dashboard y los reportes.
// Se calculan sobre la copia en memoria del usuario; no consultan la DB.
type ReportHandler struct {
	uc *report.UseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *report.UseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Summary godoc
// @Summary      Resumen del dashboard
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IDR (default) o USD"
// @Success      200  {object}  dto.SummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	out, err := h.uc.Summary(GetStore(c).State(), c.Query("currency"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Sales godoc
// @Summary      Reporte de ventas
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IDR (default) o USD"
// @Param        from      query  string  false  "Desde (YYYY-MM-DD, inclusivo)"
// @Param        to        query  string  false  "Hasta (YYYY-MM-DD, inclusivo)"
// @Param        search    query  string  false  "Cliente o producto"
// @Success      200  {object}  dto.ReportResponse[dto.SaleRow]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/sales [get]
func (h *ReportHandler) Sales(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Sales(GetStore(c).State(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Inventory godoc
// @Summary      Reporte de inventario
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IDR (default) o USD"
// @Param        search    query  string  false  "Nombre del producto"
// @Success      200  {object}  dto.ReportResponse[dto.InventoryRow]
// @Router       /api/reports/inventory [get]
func (h *ReportHandler) Inventory(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Inventory(GetStore(c).State(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Revenue godoc
// @Summary      Ingresos por día
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IDR (default) o USD"
// @Param        from      query  string  false  "Desde (YYYY-MM-DD, inclusivo)"
// @Param        to        query  string  false  "Hasta (YYYY-MM-DD, inclusivo)"
// @Success      200  {object}  dto.ReportResponse[dto.RevenueRow]
// @Router       /api/reports/revenue [get]
func (h *ReportHandler) Revenue(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Revenue(GetStore(c).State(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func parseFilter(c *fiber.Ctx) (dto.ReportFilter, error) {
	var f dto.ReportFilter
	if err := c.QueryParser(&f); err != nil {
		return f, fmt.Errorf("%w: parámetros inválidos", domain.ErrValidation)
	}
	return f, nil
}
