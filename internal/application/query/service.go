// Package query expone las proyecciones de solo lectura sobre solicitudes, ítems y libro.
// Nunca escribe: el estado "vencida" se deriva al leer.
package query

import (
	"context"
	"time"

	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/pkg/textutil"
)

const dateLayout = "2006-01-02"

// ListFilter filtros comunes de los listados de solicitudes.
type ListFilter struct {
	DepartmentID string
	Search       string
	States       []entity.RequestState
	Page         dto.PageRequest
}

// Service proyecciones de consulta.
type Service struct {
	requests repository.BorrowRequestRepository
	items    repository.ItemRepository
	users    repository.UserRepository
	now      func() time.Time
}

// NewService construye el servicio con los repositorios de lectura (fuera de tx).
func NewService(requests repository.BorrowRequestRepository, items repository.ItemRepository, users repository.UserRepository) *Service {
	return &Service{requests: requests, items: items, users: users, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Pending lista solicitudes PENDING, más antiguas primero. Solo aprobadores.
func (s *Service) Pending(ctx context.Context, actor entity.Principal, f ListFilter) (*dto.BorrowRequestListResponse, error) {
	if !actor.Can(entity.CapabilityApprover) {
		return nil, domain.ErrUnauthorized
	}
	f.Page.DefaultPage()
	return s.list(ctx, repository.RequestFilter{
		States:       []entity.RequestState{entity.StatePending},
		DepartmentID: f.DepartmentID,
		Search:       textutil.Fold(f.Search),
		Limit:        f.Page.Limit,
		Offset:       f.Page.Offset,
	}, f.Page)
}

// Mine lista las solicitudes del caller, más recientes primero.
func (s *Service) Mine(ctx context.Context, actor entity.Principal, f ListFilter) (*dto.BorrowRequestListResponse, error) {
	if actor.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	for _, st := range f.States {
		if !st.Valid() {
			return nil, domain.Invalid("estado %q inválido", st)
		}
	}
	f.Page.DefaultPage()
	return s.list(ctx, repository.RequestFilter{
		States:      f.States,
		RequesterID: actor.UserID,
		NewestFirst: true,
		Limit:       f.Page.Limit,
		Offset:      f.Page.Offset,
	}, f.Page)
}

// Overdue lista solicitudes aprobadas cuya fecha de devolución ya terminó. Solo aprobadores.
func (s *Service) Overdue(ctx context.Context, actor entity.Principal, f ListFilter) (*dto.BorrowRequestListResponse, error) {
	if !actor.Can(entity.CapabilityApprover) {
		return nil, domain.ErrUnauthorized
	}
	f.Page.DefaultPage()
	cutoff := startOfDay(s.now())
	return s.list(ctx, repository.RequestFilter{
		States:       []entity.RequestState{entity.StateApproved},
		DepartmentID: f.DepartmentID,
		Search:       textutil.Fold(f.Search),
		DueBefore:    &cutoff,
		Limit:        f.Page.Limit,
		Offset:       f.Page.Offset,
	}, f.Page)
}

// Detail devuelve la solicitud con sus líneas y el indicador de vencida.
// Aprobadores ven cualquiera; solicitantes solo las propias.
func (s *Service) Detail(ctx context.Context, actor entity.Principal, requestID string) (*dto.BorrowRequestResponse, error) {
	req, err := s.load(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	out := toRequestResponse(req, s.now())
	if u, err := s.users.GetByID(ctx, req.RequesterID); err == nil && u != nil {
		out.RequesterName = u.Name
		out.EmployeeNumber = u.EmployeeNumber
	}
	for i := range out.Lines {
		item, err := s.items.GetByID(ctx, out.Lines[i].ItemID)
		if err != nil {
			return nil, err
		}
		if item != nil {
			out.Lines[i].ItemCode = item.Code
			out.Lines[i].ItemName = item.Name
		}
	}
	return out, nil
}

// Request devuelve la entidad con la misma regla de visibilidad que Detail (comprobante PDF).
func (s *Service) Request(ctx context.Context, actor entity.Principal, requestID string) (*entity.BorrowRequest, error) {
	return s.load(ctx, actor, requestID)
}

func (s *Service) load(ctx context.Context, actor entity.Principal, requestID string) (*entity.BorrowRequest, error) {
	if requestID == "" {
		return nil, domain.Invalid("request_id requerido")
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &domain.NotFoundError{Kind: "request", ID: requestID}
	}
	if !actor.Can(entity.CapabilityApprover) && req.RequesterID != actor.UserID {
		return nil, domain.ErrUnauthorized
	}
	return req, nil
}

// Items lista ítems con su cantidad actual.
func (s *Service) Items(ctx context.Context, category, search string, page dto.PageRequest) (*dto.ItemListResponse, error) {
	page.DefaultPage()
	list, total, err := s.items.List(ctx, repository.ItemFilter{
		Category: category,
		Search:   textutil.Fold(search),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.ItemListResponse{
		Items: make([]dto.ItemResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, it := range list {
		out.Items = append(out.Items, ToItemResponse(it))
	}
	return out, nil
}

// Me datos del usuario autenticado.
func (s *Service) Me(ctx context.Context, actor entity.Principal) (*dto.UserResponse, error) {
	out := &dto.UserResponse{
		ID:           actor.UserID,
		Role:         actor.Role,
		DepartmentID: actor.DepartmentID,
		Capabilities: actor.Capabilities,
	}
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		out.EmployeeNumber = u.EmployeeNumber
		out.Name = u.Name
		out.Email = u.Email
	}
	d, err := s.users.GetDepartment(ctx, actor.DepartmentID)
	if err != nil {
		return nil, err
	}
	if d != nil {
		out.DepartmentName = d.Name
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, filter repository.RequestFilter, page dto.PageRequest) (*dto.BorrowRequestListResponse, error) {
	rows, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := &dto.BorrowRequestListResponse{
		Items: make([]dto.BorrowRequestResponse, 0, len(rows)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, r := range rows {
		item := *toRequestResponse(r.Request, now)
		item.RequesterName = r.RequesterName
		item.EmployeeNumber = r.EmployeeNumber
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// startOfDay medianoche UTC del día de t: las fechas de préstamo son días calendario en UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func toRequestResponse(r *entity.BorrowRequest, now time.Time) *dto.BorrowRequestResponse {
	out := &dto.BorrowRequestResponse{
		ID:             r.ID,
		RequesterID:    r.RequesterID,
		DepartmentID:   r.DepartmentID,
		State:          string(r.State),
		Overdue:        r.IsOverdue(now),
		BorrowDate:     r.BorrowDate.Format(dateLayout),
		ReturnDate:     r.ReturnDate.Format(dateLayout),
		DueAt:          r.DueAt(),
		Purpose:        r.Purpose,
		Lines:          make([]dto.BorrowLineResponse, 0, len(r.Lines)),
		TotalQuantity:  r.TotalQuantity(),
		DecidedBy:      r.DecidedBy,
		DecidedAt:      r.DecidedAt,
		DecisionReason: r.DecisionReason,
		ReturnedBy:     r.ReturnedBy,
		ReturnedAt:     r.ReturnedAt,
		ReturnNote:     r.ReturnNote,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.BorrowLineResponse{
			LineNo:   l.LineNo,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Remark:   l.Remark,
		})
	}
	return out
}

// ToRequestResponse convierte una solicitud a su salida HTTP evaluando "vencida" en now.
func ToRequestResponse(r *entity.BorrowRequest, now time.Time) dto.BorrowRequestResponse {
	return *toRequestResponse(r, now)
}

// ToItemResponse convierte un ítem a su salida HTTP.
func ToItemResponse(it *entity.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:        it.ID,
		Code:      it.Code,
		Name:      it.Name,
		Category:  it.Category,
		Quantity:  it.Quantity,
		UpdatedAt: it.UpdatedAt,
	}
}
