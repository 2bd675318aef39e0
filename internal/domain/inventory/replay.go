package inventory

import (
	"fmt"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// Replay recorre los movimientos de un ítem en orden cronológico (Sequence ascendente),
// partiendo de cantidad cero, y devuelve la cantidad reconstruida y los totales IN/OUT.
// Falla en la primera entrada cuya aritmética o encadenamiento (before == after anterior) no cuadre.
func Replay(movements []*entity.StockMovement) (quantity, totalIn, totalOut int64, err error) {
	var lastSeq int64
	for _, m := range movements {
		if m.Sequence <= lastSeq {
			return 0, 0, 0, fmt.Errorf("movimiento %s: secuencia %d no creciente", m.ID, m.Sequence)
		}
		if !m.Consistent() {
			return 0, 0, 0, fmt.Errorf("movimiento %s: aritmética inconsistente (%d %s %d -> %d)",
				m.ID, m.QuantityBefore, m.Type, m.Amount, m.QuantityAfter)
		}
		if m.QuantityBefore != quantity {
			return 0, 0, 0, fmt.Errorf("movimiento %s: cantidad previa %d, se esperaba %d", m.ID, m.QuantityBefore, quantity)
		}
		quantity = m.QuantityAfter
		if m.Type == entity.MovementTypeIN {
			totalIn += m.Amount
		} else {
			totalOut += m.Amount
		}
		lastSeq = m.Sequence
	}
	return quantity, totalIn, totalOut, nil
}

// Outstanding calcula, por ítem, lo que una solicitud mantiene reservado según el libro:
// ΣOUT − ΣIN de los movimientos asociados a esa solicitud.
func Outstanding(movements []*entity.StockMovement) map[string]int64 {
	out := make(map[string]int64)
	for _, m := range movements {
		out[m.ItemID] -= m.Delta()
	}
	for id, q := range out {
		if q <= 0 {
			delete(out, id)
		}
	}
	return out
}
