package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

func TestTxRunner_RollsBackOnError(t *testing.T) {
	store := NewStore(time.Second)
	store.SeedItem(entity.Item{ID: "it-1", Code: "A"})
	runner := NewTxRunner(store)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, func(items repository.ItemRepository, _ repository.StockMovementRepository) error {
		_, _, err := items.Release(ctx, "it-1", 4)
		return err
	}))

	boom := errors.New("boom")
	err := runner.Run(ctx, func(items repository.ItemRepository, movs repository.StockMovementRepository) error {
		if _, _, err := items.Reserve(ctx, "it-1", 3); err != nil {
			return err
		}
		require.NoError(t, movs.Create(ctx, &entity.StockMovement{ID: "m-1", ItemID: "it-1", Sequence: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	item, err := NewItemRepository(store).GetByID(ctx, "it-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), item.Quantity)
	last, err := NewStockMovementRepository(store).LastSequence(ctx, "it-1")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestTxRunner_RollsBackOnPanic(t *testing.T) {
	store := NewStore(time.Second)
	store.SeedItem(entity.Item{ID: "it-1", Code: "A"})
	runner := NewTxRunner(store)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx, func(items repository.ItemRepository, _ repository.StockMovementRepository) error {
		_, _, err := items.Release(ctx, "it-1", 5)
		return err
	}))

	assert.PanicsWithValue(t, "boom", func() {
		_ = runner.Run(ctx, func(items repository.ItemRepository, _ repository.StockMovementRepository) error {
			if _, _, err := items.Reserve(ctx, "it-1", 2); err != nil {
				return err
			}
			panic("boom")
		})
	})

	item, err := NewItemRepository(store).GetByID(ctx, "it-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), item.Quantity)

	// la cerradura se liberó: otra unidad de trabajo entra sin esperar
	require.NoError(t, runner.Run(ctx, func(items repository.ItemRepository, _ repository.StockMovementRepository) error {
		_, _, err := items.Reserve(ctx, "it-1", 1)
		return err
	}))
}

func TestStore_LockTimeoutIsConflict(t *testing.T) {
	store := NewStore(20 * time.Millisecond)
	runner := NewTxRunner(store)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = runner.Run(ctx, func(repository.ItemRepository, repository.StockMovementRepository) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err := NewItemRepository(store).GetByID(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrConflict)
	close(release)
}

func TestStore_CancelledContext(t *testing.T) {
	store := NewStore(time.Second)
	store.sem <- struct{}{}
	defer store.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewItemRepository(store).GetByID(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStockMovementRepo_SequenceMustAdvance(t *testing.T) {
	store := NewStore(time.Second)
	repo := NewStockMovementRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.StockMovement{ID: "m-1", ItemID: "it", Sequence: 1}))
	err := repo.Create(ctx, &entity.StockMovement{ID: "m-2", ItemID: "it", Sequence: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, repo.Create(ctx, &entity.StockMovement{ID: "m-3", ItemID: "it", Sequence: 2}))

	page, err := repo.ListByItem(ctx, "it", 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Sequence)
}

func TestItemRepo_ReserveNeverGoesNegative(t *testing.T) {
	store := NewStore(time.Second)
	store.SeedItem(entity.Item{ID: "it", Code: "A"})
	repo := NewItemRepository(store)
	ctx := context.Background()

	_, _, err := repo.Release(ctx, "it", 2)
	require.NoError(t, err)
	before, after, err := repo.Reserve(ctx, "it", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), before)
	assert.Zero(t, after)

	_, _, err = repo.Reserve(ctx, "it", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, _, err = repo.Reserve(ctx, "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBorrowRequestRepo_VersionCheck(t *testing.T) {
	store := NewStore(time.Second)
	repo := NewBorrowRequestRepository(store)
	ctx := context.Background()
	req := &entity.BorrowRequest{ID: "r-1", State: entity.StatePending, Version: 1,
		Lines: []entity.BorrowLine{{LineNo: 1, ItemID: "it", Quantity: 1}}}
	require.NoError(t, repo.Create(ctx, req))

	next := *req
	next.State = entity.StateApproved
	next.Version = 2
	next.Lines = nil
	require.NoError(t, repo.UpdateState(ctx, &next, 1))
	assert.ErrorIs(t, repo.UpdateState(ctx, &next, 1), domain.ErrConflict)

	stored, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateApproved, stored.State)
	assert.Len(t, stored.Lines, 1, "las líneas no se reemplazan")
}

func TestIdempotencyStore_Expiry(t *testing.T) {
	s := NewIdempotencyStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := s.Acquire(ctx, "k", time.Hour)
	assert.True(t, ok)
	ok, _ = s.Acquire(ctx, "k", time.Hour)
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = s.Acquire(ctx, "k", time.Hour)
	assert.True(t, ok)

	require.NoError(t, s.Release(ctx, "k"))
	ok, _ = s.Acquire(ctx, "k", time.Hour)
	assert.True(t, ok)
}
