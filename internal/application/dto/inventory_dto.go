package dto

import "time"

// ItemResponse ítem con su cantidad disponible.
type ItemResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// AdjustStockRequest body para POST /api/items/:id/adjustments.
type AdjustStockRequest struct {
	Type   string `json:"type" validate:"required,oneof=IN OUT"`
	Amount int64  `json:"amount" validate:"min=1"`
	Notes  string `json:"notes" validate:"required"`
}

// MovementResponse entrada del libro de stock.
type MovementResponse struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	Sequence       int64     `json:"sequence"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	RequestID      *string   `json:"request_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MovementPageResponse página del historial (más reciente primero).
type MovementPageResponse struct {
	Items         []MovementResponse `json:"items"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

// LedgerCheckResponse resultado de la verificación del libro de un ítem.
type LedgerCheckResponse struct {
	ItemID           string `json:"item_id"`
	StoredQuantity   int64  `json:"stored_quantity"`
	ReplayedQuantity int64  `json:"replayed_quantity"`
	TotalIn          int64  `json:"total_in"`
	TotalOut         int64  `json:"total_out"`
	Movements        int    `json:"movements"`
	Consistent       bool   `json:"consistent"`
	Problem          string `json:"problem,omitempty"`
}
