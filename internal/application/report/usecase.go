// Package report arma el resumen del dashboard y los reportes tabulares (ventas,
// inventario e ingresos por día) a partir de una instantánea del SyncStore.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/application/syncstore"
	"github.com/jhoicas/ventas-sync/internal/domain"
	"github.com/jhoicas/ventas-sync/internal/domain/entity"
)

const (
	dayLayout   = "2006-01-02"
	labelLayout = "02/01/2006"
	recentSales = 5
)

// UseCase reportes sobre el estado en memoria. No consulta el backend.
type UseCase struct {
	usdRate decimal.Decimal
	idr     *message.Printer
	usd     *message.Printer
}

// NewUseCase construye el caso de uso. usdRate es cuántas IDR vale 1 USD.
func NewUseCase(usdRate decimal.Decimal) *UseCase {
	if !usdRate.IsPositive() {
		usdRate = decimal.NewFromInt(15000)
	}
	return &UseCase{
		usdRate: usdRate,
		idr:     message.NewPrinter(language.Indonesian),
		usd:     message.NewPrinter(language.AmericanEnglish),
	}
}

// Summary tarjetas del dashboard: total vendido, unidades, conteos y últimas ventas.
func (uc *UseCase) Summary(st syncstore.State, currency string) (*dto.SummaryResponse, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	sold := 0
	for _, s := range st.Sales {
		sold += s.Quantity
	}
	total := uc.Convert(st.TotalSales, currency)
	recent := make([]dto.SaleRow, 0, recentSales)
	for i, s := range st.Sales {
		if i == recentSales {
			break
		}
		recent = append(recent, uc.saleRow(s, currency))
	}
	return &dto.SummaryResponse{
		Currency:            currency,
		TotalSales:          total,
		TotalSalesFormatted: uc.Format(total, currency),
		ProductsSold:        sold,
		ProductCount:        len(st.Products),
		SaleCount:           len(st.Sales),
		RecentSales:         recent,
	}, nil
}

// Sales filas de ventas filtradas por rango de fechas y búsqueda.
func (uc *UseCase) Sales(st syncstore.State, f dto.ReportFilter) (*dto.ReportResponse[dto.SaleRow], error) {
	currency, err := normalizeCurrency(f.Currency)
	if err != nil {
		return nil, err
	}
	match, err := saleMatcher(f)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleRow, 0, len(st.Sales))
	for _, s := range st.Sales {
		if match(s) {
			items = append(items, uc.saleRow(s, currency))
		}
	}
	return &dto.ReportResponse[dto.SaleRow]{Currency: currency, Items: items, Total: len(items)}, nil
}

// Inventory filas de productos con su precio convertido.
func (uc *UseCase) Inventory(st syncstore.State, f dto.ReportFilter) (*dto.ReportResponse[dto.InventoryRow], error) {
	currency, err := normalizeCurrency(f.Currency)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	items := make([]dto.InventoryRow, 0, len(st.Products))
	for _, p := range st.Products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		price := uc.Convert(p.Price, currency)
		row := dto.InventoryRow{
			ID:             p.ID,
			Name:           p.Name,
			Price:          price,
			PriceFormatted: uc.Format(price, currency),
			Stock:          p.Stock,
		}
		if p.Description != nil {
			row.Description = *p.Description
		}
		items = append(items, row)
	}
	return &dto.ReportResponse[dto.InventoryRow]{Currency: currency, Items: items, Total: len(items)}, nil
}

// Revenue ingresos por día calendario (UTC), del más antiguo al más reciente.
func (uc *UseCase) Revenue(st syncstore.State, f dto.ReportFilter) (*dto.ReportResponse[dto.RevenueRow], error) {
	currency, err := normalizeCurrency(f.Currency)
	if err != nil {
		return nil, err
	}
	match, err := saleMatcher(f)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]decimal.Decimal)
	for _, s := range st.Sales {
		if !match(s) {
			continue
		}
		day := s.Date.UTC().Format(dayLayout)
		byDay[day] = byDay[day].Add(s.TotalAmount)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	items := make([]dto.RevenueRow, 0, len(days))
	for _, day := range days {
		t, _ := time.Parse(dayLayout, day)
		amount := uc.Convert(byDay[day], currency)
		items = append(items, dto.RevenueRow{
			Day:              t.Format(labelLayout),
			Revenue:          amount,
			RevenueFormatted: uc.Format(amount, currency),
		})
	}
	return &dto.ReportResponse[dto.RevenueRow]{Currency: currency, Items: items, Total: len(items)}, nil
}

// Convert pasa un monto en IDR a la moneda pedida.
func (uc *UseCase) Convert(amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == dto.CurrencyUSD {
		return amount.Div(uc.usdRate)
	}
	return amount
}

// Format formatea el monto: "Rp 20.000" para IDR (sin decimales) y "$1,234.50" para USD.
func (uc *UseCase) Format(amount decimal.Decimal, currency string) string {
	if currency == dto.CurrencyUSD {
		return "$" + grouped(uc.usd, amount, 2, ".")
	}
	return "Rp " + grouped(uc.idr, amount, 0, ",")
}

// grouped agrupa la parte entera con las reglas del idioma y agrega los decimales fijos.
func grouped(p *message.Printer, amount decimal.Decimal, places int32, sep string) string {
	fixed := amount.Round(places)
	neg := fixed.IsNegative()
	fixed = fixed.Abs()
	whole := fixed.Truncate(0)
	out := p.Sprint(number.Decimal(whole.IntPart()))
	if places > 0 {
		frac := fixed.Sub(whole).StringFixed(places) // "0.50"
		out += sep + frac[2:]
	}
	if neg {
		out = "-" + out
	}
	return out
}

func (uc *UseCase) saleRow(s *entity.Sale, currency string) dto.SaleRow {
	total := uc.Convert(s.TotalAmount, currency)
	row := dto.SaleRow{
		ID:             s.ID,
		Date:           s.Date,
		DateLabel:      s.Date.Format(labelLayout),
		Quantity:       s.Quantity,
		Total:          total,
		TotalFormatted: uc.Format(total, currency),
		Status:         s.Status,
	}
	if s.CustomerName != nil {
		row.CustomerName = *s.CustomerName
	}
	if s.Product != nil {
		row.ProductName = s.Product.Name
	}
	return row
}

func normalizeCurrency(c string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(c)) {
	case "", dto.CurrencyIDR:
		return dto.CurrencyIDR, nil
	case dto.CurrencyUSD:
		return dto.CurrencyUSD, nil
	}
	return "", fmt.Errorf("%w: moneda no soportada %q", domain.ErrValidation, c)
}

// saleMatcher filtra por rango [from, to + 1 día) y por búsqueda en cliente o producto.
// El rango solo aplica si vienen ambos extremos.
func saleMatcher(f dto.ReportFilter) (func(*entity.Sale) bool, error) {
	var from, to time.Time
	if f.From != "" && f.To != "" {
		var err error
		if from, err = time.Parse(dayLayout, f.From); err != nil {
			return nil, fmt.Errorf("%w: from debe ser YYYY-MM-DD", domain.ErrValidation)
		}
		if to, err = time.Parse(dayLayout, f.To); err != nil {
			return nil, fmt.Errorf("%w: to debe ser YYYY-MM-DD", domain.ErrValidation)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("%w: to es anterior a from", domain.ErrValidation)
		}
		to = to.AddDate(0, 0, 1)
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	return func(s *entity.Sale) bool {
		if !from.IsZero() && (s.Date.Before(from) || !s.Date.Before(to)) {
			return false
		}
		if search == "" {
			return true
		}
		if s.CustomerName != nil && strings.Contains(strings.ToLower(*s.CustomerName), search) {
			return true
		}
		return s.Product != nil && strings.Contains(strings.ToLower(s.Product.Name), search)
	}, nil
}
