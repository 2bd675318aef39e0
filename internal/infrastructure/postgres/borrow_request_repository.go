package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

const (
	dialectPostgres   = "postgres"
	tableItems        = "items"
	tableRequests     = "borrow_requests"
	tableRequestLines = "borrow_request_lines"
	tableUsers        = "users"
)

var _ repository.BorrowRequestRepository = (*BorrowRequestRepo)(nil)

// BorrowRequestRepo implementación de BorrowRequestRepository sobre PostgreSQL (usable con pool o tx).
type BorrowRequestRepo struct {
	q Querier
}

// NewBorrowRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBorrowRequestRepository(q Querier) *BorrowRequestRepo {
	return &BorrowRequestRepo{q: q}
}

var requestColumns = []string{
	"id", "requester_id", "department_id", "created_at", "borrow_date", "return_date", "purpose",
	"state", "version", "decided_by", "decided_at", "decision_reason", "returned_by", "returned_at",
	"return_note", "updated_at",
}

func requestSelect(prefix string) string {
	cols := make([]string, len(requestColumns))
	for i, c := range requestColumns {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}

func requestDest(req *entity.BorrowRequest) []any {
	return []any{
		&req.ID, &req.RequesterID, &req.DepartmentID, &req.CreatedAt, &req.BorrowDate, &req.ReturnDate,
		&req.Purpose, &req.State, &req.Version, &req.DecidedBy, &req.DecidedAt, &req.DecisionReason,
		&req.ReturnedBy, &req.ReturnedAt, &req.ReturnNote, &req.UpdatedAt,
	}
}

// Create persiste la cabecera y las líneas en la transacción del caller.
func (r *BorrowRequestRepo) Create(ctx context.Context, req *entity.BorrowRequest) error {
	query := `
		INSERT INTO borrow_requests (` + requestSelect("") + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		req.ID, req.RequesterID, req.DepartmentID, req.CreatedAt, req.BorrowDate, req.ReturnDate,
		req.Purpose, req.State, req.Version, req.DecidedBy, req.DecidedAt, req.DecisionReason,
		req.ReturnedBy, req.ReturnedAt, req.ReturnNote, req.UpdatedAt,
	)
	if err != nil {
		return wrapErr("insert borrow request", err)
	}
	lineQuery := `
		INSERT INTO borrow_request_lines (id, request_id, line_no, item_id, quantity, remark)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, l := range req.Lines {
		if _, err := r.q.Exec(ctx, lineQuery, l.ID, req.ID, l.LineNo, l.ItemID, l.Quantity, l.Remark); err != nil {
			return wrapErr("insert borrow request line", err)
		}
	}
	return nil
}

// GetByID obtiene la solicitud con sus líneas.
func (r *BorrowRequestRepo) GetByID(ctx context.Context, id string) (*entity.BorrowRequest, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene la solicitud y bloquea la fila (SELECT FOR UPDATE).
func (r *BorrowRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.BorrowRequest, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *BorrowRequestRepo) get(ctx context.Context, id, lock string) (*entity.BorrowRequest, error) {
	query := `SELECT ` + requestSelect("") + ` FROM borrow_requests WHERE id = $1` + lock
	var req entity.BorrowRequest
	if err := r.q.QueryRow(ctx, query, id).Scan(requestDest(&req)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get borrow request", err)
	}
	lines, err := r.loadLines(ctx, []string{req.ID})
	if err != nil {
		return nil, err
	}
	req.Lines = lines[req.ID]
	return &req, nil
}

// UpdateState persiste la transición solo si la versión almacenada es expectedVersion.
func (r *BorrowRequestRepo) UpdateState(ctx context.Context, req *entity.BorrowRequest, expectedVersion int) error {
	query := `
		UPDATE borrow_requests SET
			state = $2, version = $3, decided_by = $4, decided_at = $5, decision_reason = $6,
			returned_by = $7, returned_at = $8, return_note = $9, updated_at = $10
		WHERE id = $1 AND version = $11`
	tag, err := r.q.Exec(ctx, query,
		req.ID, req.State, req.Version, req.DecidedBy, req.DecidedAt, req.DecisionReason,
		req.ReturnedBy, req.ReturnedAt, req.ReturnNote, req.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return wrapErr("update borrow request", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update borrow request %s: %w", req.ID, domain.ErrConflict)
	}
	return nil
}

// List proyección paginada con datos del solicitante. Devuelve la página y el total filtrado.
func (r *BorrowRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]repository.RequestSummary, int, error) {
	where := requestWhere(filter)
	base := goqu.Dialect(dialectPostgres).
		From(goqu.T(tableRequests).As("r")).
		LeftJoin(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("r.requester_id")))).
		Where(where...)

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count requests: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count requests", err)
	}

	order := goqu.I("r.created_at").Asc()
	if filter.NewestFirst {
		order = goqu.I("r.created_at").Desc()
	}
	page := base.
		Select(goqu.L(requestSelect("r.")+`, COALESCE(u.name, ''), COALESCE(u.employee_number, '')`)).
		Order(order, goqu.I("r.id").Asc())
	if filter.Limit > 0 {
		page = page.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		page = page.Offset(uint(filter.Offset))
	}
	pageSQL, pageArgs, err := page.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list requests: %w", err)
	}

	rows, err := r.q.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, wrapErr("list requests", err)
	}
	defer rows.Close()
	out := []repository.RequestSummary{}
	var ids []string
	for rows.Next() {
		var req entity.BorrowRequest
		var s repository.RequestSummary
		dest := append(requestDest(&req), &s.RequesterName, &s.EmployeeNumber)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan request: %w", err)
		}
		s.Request = &req
		out = append(out, s)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("list requests", err)
	}
	rows.Close()

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range out {
		s.Request.Lines = lines[s.Request.ID]
	}
	return out, total, nil
}

func requestWhere(filter repository.RequestFilter) []exp.Expression {
	var where []exp.Expression
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		where = append(where, goqu.I("r.state").In(states))
	}
	if filter.DepartmentID != "" {
		where = append(where, goqu.I("r.department_id").Eq(filter.DepartmentID))
	}
	if filter.RequesterID != "" {
		where = append(where, goqu.I("r.requester_id").Eq(filter.RequesterID))
	}
	if filter.DueBefore != nil {
		where = append(where, goqu.L(`r.return_date < ?::date`, filter.DueBefore.Format("2006-01-02")))
	}
	if filter.Search != "" {
		where = append(where, goqu.L(
			`unaccent(lower(COALESCE(u.name, '') || ' ' || COALESCE(u.employee_number, ''))) LIKE unaccent(lower(?))`,
			likePattern(filter.Search),
		))
	}
	return where
}

func (r *BorrowRequestRepo) loadLines(ctx context.Context, requestIDs []string) (map[string][]entity.BorrowLine, error) {
	out := make(map[string][]entity.BorrowLine, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT request_id, id, line_no, item_id, quantity, remark
		FROM borrow_request_lines WHERE request_id = ANY($1)
		ORDER BY request_id, line_no`
	rows, err := r.q.Query(ctx, query, requestIDs)
	if err != nil {
		return nil, wrapErr("load request lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var reqID string
		var l entity.BorrowLine
		if err := rows.Scan(&reqID, &l.ID, &l.LineNo, &l.ItemID, &l.Quantity, &l.Remark); err != nil {
			return nil, fmt.Errorf("scan request line: %w", err)
		}
		out[reqID] = append(out[reqID], l)
	}
	return out, wrapErr("load request lines", rows.Err())
}

// likePattern escapa comodines y envuelve en %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
