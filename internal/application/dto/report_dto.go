package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monedas soportadas por los reportes.
const (
	CurrencyIDR = "IDR"
	CurrencyUSD = "USD"
)

// ReportFilter parámetros de query comunes a los reportes.
// From y To son días (YYYY-MM-DD) inclusivos; ambos deben venir para filtrar por fecha.
type ReportFilter struct {
	Currency string `query:"currency"`
	From     string `query:"from"`
	To       string `query:"to"`
	Search   string `query:"search"`
}

// SummaryResponse respuesta de GET /api/reports/summary (tarjetas del dashboard).
type SummaryResponse struct {
	Currency            string          `json:"currency"`
	TotalSales          decimal.Decimal `json:"total_sales"`
	TotalSalesFormatted string          `json:"total_sales_formatted"`
	ProductsSold        int             `json:"products_sold"`
	ProductCount        int             `json:"product_count"`
	SaleCount           int             `json:"sale_count"`
	RecentSales         []SaleRow       `json:"recent_sales"`
}

// SaleRow fila del reporte de ventas.
type SaleRow struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	DateLabel      string          `json:"date_label"` // DD/MM/YYYY
	CustomerName   string          `json:"customer_name"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"total_formatted"`
	Status         string          `json:"status"`
}

// InventoryRow fila del reporte de inventario.
type InventoryRow struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	PriceFormatted string          `json:"price_formatted"`
	Stock          int             `json:"stock"`
}

// RevenueRow ingresos agregados de un día.
type RevenueRow struct {
	Day              string          `json:"day"` // DD/MM/YYYY
	Revenue          decimal.Decimal `json:"revenue"`
	RevenueFormatted string          `json:"revenue_formatted"`
}

// ReportResponse envoltorio de los reportes tabulares.
type ReportResponse[T any] struct {
	Currency string `json:"currency"`
	Items    []T    `json:"items"`
	Total    int    `json:"total"`
}
