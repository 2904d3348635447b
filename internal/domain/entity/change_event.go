package entity

import "time"

// Tablas observadas por el change-feed.
const (
	TableProducts = "products"
	TableSales    = "sales"
)

// Tipos de cambio publicados por el backend.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
	// ChangeResync lo emite el change-feed al reconectarse: pudo perder eventos.
	ChangeResync = "RESYNC"
)

// ChangeEvent notificación de un insert/update/delete sobre una tabla.
type ChangeEvent struct {
	Table      string    `json:"table"`
	Type       string    `json:"type"`
	RecordID   string    `json:"id"`
	ReceivedAt time.Time `json:"-"`
}
