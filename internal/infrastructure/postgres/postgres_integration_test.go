package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain"
	domainborrow "github.com/jhoicas/prestamos-api/internal/domain/borrowing"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../../.env")

	// Base de datos dedicada: los tests truncan las tablas.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL no definido: se omite el test de integración")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE stock_movements, borrow_request_lines, borrow_requests, items, users, departments CASCADE;
		INSERT INTO departments (id, name) VALUES ('d-1', 'Laboratorio');
		INSERT INTO users (id, employee_number, name, role, department_id)
		VALUES ('u-1', 'E-001', 'María Gómez', 'funcionario', 'd-1'),
		       ('u-2', 'E-002', 'Jorge Peña', 'almacen', 'd-1');
	`)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type fixture struct {
	pool     *pgxpool.Pool
	items    *postgres.ItemRepo
	ledger   *inventory.StockLedger
	engine   *borrowing.WorkflowEngine
	approver entity.Principal
	staff    entity.Principal
}

func newFixture(t *testing.T) *fixture {
	pool := setupTestDB(t)
	tx := postgres.NewTxRunner(pool, time.Second)
	items := postgres.NewItemRepository(pool)
	ledger := inventory.NewStockLedger(tx, items, postgres.NewStockMovementRepository(pool))
	engine := borrowing.NewWorkflowEngine(tx, ledger, items, nil, logger.Nop(), borrowing.Config{
		RetryAttempts:  5,
		RetryBaseDelay: 10 * time.Millisecond,
	})
	return &fixture{
		pool:     pool,
		items:    items,
		ledger:   ledger,
		engine:   engine,
		approver: entity.NewPrincipal("u-2", "d-1", entity.RoleAlmacen),
		staff:    entity.NewPrincipal("u-1", "d-1", entity.RoleFuncionario),
	}
}

func (f *fixture) stockedItem(t *testing.T, code string, qty int64) string {
	ctx := context.Background()
	now := time.Now()
	item := &entity.Item{ID: uuid.NewString(), Code: code, Name: "Proyector " + code, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.items.Create(ctx, item))
	if qty > 0 {
		_, err := f.ledger.Adjust(ctx, f.approver, item.ID, entity.MovementTypeIN, qty, "inventario inicial")
		require.NoError(t, err)
	}
	return item.ID
}

func (f *fixture) submit(t *testing.T, itemID string, qty int64) *entity.BorrowRequest {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	req, err := f.engine.Submit(context.Background(), f.staff, borrowing.SubmitInput{
		Lines:      []domainborrow.LineInput{{ItemID: itemID, Quantity: qty}},
		BorrowDate: day,
		ReturnDate: day.AddDate(0, 0, 3),
		Purpose:    "clase",
	})
	require.NoError(t, err)
	return req
}

func TestPostgres_ApproveAndReturnRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.stockedItem(t, "PRJ-1", 5)

	req := f.submit(t, itemID, 3)
	approved, err := f.engine.Decide(ctx, f.approver, req.ID, borrowing.Decision{Action: borrowing.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, entity.StateApproved, approved.State)

	item, err := f.items.GetByID(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Quantity)

	returned, err := f.engine.MarkReturned(ctx, f.approver, req.ID, "completo")
	require.NoError(t, err)
	assert.Equal(t, entity.StateReturned, returned.State)

	check, err := f.ledger.Verify(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, check.Consistent, check.Problem)
	assert.Equal(t, int64(5), check.StoredQuantity)
	assert.Equal(t, 3, check.Movements)
}

func TestPostgres_ConcurrentApprovalsNeverOverReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.stockedItem(t, "CAM-1", 5)

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.submit(t, itemID, 1).ID
	}

	var ok, short int32
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.engine.Decide(ctx, f.approver, id, borrowing.Decision{Action: borrowing.ActionApprove})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
				atomic.AddInt32(&short, 1)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok)
	assert.Equal(t, int32(3), short)
	item, err := f.items.GetByID(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Quantity)
}

func TestPostgres_ListFiltersBySearchWithoutAccents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.stockedItem(t, "LAP-1", 2)
	f.submit(t, itemID, 1)

	repo := postgres.NewBorrowRequestRepository(f.pool)
	list, total, err := repo.List(ctx, repository.RequestFilter{
		States: []entity.RequestState{entity.StatePending},
		Search: "maria gomez",
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "E-001", list[0].EmployeeNumber)
	assert.Len(t, list[0].Request.Lines, 1)
}
