package repository

import "context"

// StockRepository define el puerto para leer y escribir el stock de un producto.
// Las escrituras son absolutas (no incrementos): el llamador lee, calcula y escribe.
type StockRepository interface {
	// Get devuelve el stock actual; found=false si el producto no existe.
	Get(ctx context.Context, productID string) (stock int, found bool, err error)
	// Set escribe el stock; updated=false si la fila ya no existe (no es error).
	Set(ctx context.Context, productID string, stock int) (updated bool, err error)
}
