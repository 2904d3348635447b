package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
)

// SaleHandler registra y elimina ventas; ambas operaciones ajustan el stock.
type SaleHandler struct{}

// NewSaleHandler construye el handler.
func NewSaleHandler() *SaleHandler {
	return &SaleHandler{}
}

// List godoc
// @Summary      Listar ventas (fecha descendente, con el producto embebido)
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   entity.Sale
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	return c.JSON(GetStore(c).State().Sales)
}

// Create godoc
// @Summary      Registrar venta
// @Description  Inserta la venta y luego descuenta el stock. No es atómico: si falla el descuento responde 502 y la venta queda registrada.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "Datos de la venta"
// @Success      201   {object}  entity.Sale
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	input := syncstore.SaleInput{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Status:    in.Status,
	}
	if in.Date != nil {
		input.Date = *in.Date
	}
	if in.CustomerName != nil {
		input.CustomerName = *in.CustomerName
	}
	out, err := GetStore(c).CreateSale(c.UserContext(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Delete godoc
// @Summary      Eliminar venta
// @Description  Elimina la venta y devuelve la cantidad al stock del producto.
// @Tags         sales
// @Security     Bearer
// @Param        id   path  string  true  "ID de la venta"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) Delete(c *fiber.Ctx) error {
	if err := GetStore(c).DeleteSale(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
