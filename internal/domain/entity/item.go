package entity

import "time"

// Item representa un tipo de equipo prestable, fungible por unidad (ej. proyector, cámara).
// Quantity es el stock disponible; solo lo modifica el libro de movimientos (StockMovement).
type Item struct {
	ID        string
	Code      string // código de inventario institucional
	Name      string
	Category  string
	Quantity  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
