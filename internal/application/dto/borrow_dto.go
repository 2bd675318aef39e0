package dto

import "time"

// BorrowLineRequest línea de una solicitud nueva.
type BorrowLineRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"min=1"`
	Remark   string `json:"remark"`
}

// CreateBorrowRequest body para POST /api/borrow-requests. Fechas en formato YYYY-MM-DD.
type CreateBorrowRequest struct {
	BorrowDate string              `json:"borrow_date" validate:"required"`
	ReturnDate string              `json:"return_date" validate:"required"`
	Purpose    string              `json:"purpose"`
	Lines      []BorrowLineRequest `json:"lines" validate:"required,min=1"`
}

// DecisionRequest body para POST /api/borrow-requests/:id/decision.
type DecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason"`
}

// ReturnRequest body para POST /api/borrow-requests/:id/return.
type ReturnRequest struct {
	Note string `json:"note"`
}

// BorrowLineResponse línea de una solicitud.
type BorrowLineResponse struct {
	LineNo   int    `json:"line_no"`
	ItemID   string `json:"item_id"`
	ItemCode string `json:"item_code,omitempty"`
	ItemName string `json:"item_name,omitempty"`
	Quantity int64  `json:"quantity"`
	Remark   string `json:"remark,omitempty"`
}

// BorrowRequestResponse salida de una solicitud con su estado derivado.
type BorrowRequestResponse struct {
	ID             string               `json:"id"`
	RequesterID    string               `json:"requester_id"`
	RequesterName  string               `json:"requester_name,omitempty"`
	EmployeeNumber string               `json:"employee_number,omitempty"`
	DepartmentID   string               `json:"department_id"`
	State          string               `json:"state"`
	Overdue        bool                 `json:"overdue"`
	BorrowDate     string               `json:"borrow_date"`
	ReturnDate     string               `json:"return_date"`
	DueAt          time.Time            `json:"due_at"`
	Purpose        string               `json:"purpose,omitempty"`
	Lines          []BorrowLineResponse `json:"lines"`
	TotalQuantity  int64                `json:"total_quantity"`
	DecidedBy      string               `json:"decided_by,omitempty"`
	DecidedAt      *time.Time           `json:"decided_at,omitempty"`
	DecisionReason string               `json:"decision_reason,omitempty"`
	ReturnedBy     string               `json:"returned_by,omitempty"`
	ReturnedAt     *time.Time           `json:"returned_at,omitempty"`
	ReturnNote     string               `json:"return_note,omitempty"`
	Version        int                  `json:"version"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// BorrowRequestListResponse lista paginada de solicitudes.
type BorrowRequestListResponse struct {
	Items []BorrowRequestResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}
