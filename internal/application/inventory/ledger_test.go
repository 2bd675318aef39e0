package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/infrastructure/memory"
)

var admin = entity.NewPrincipal("u-admin", "d-1", entity.RoleAdmin)

func newLedger(t *testing.T, items ...string) (*inventory.StockLedger, *memory.Store) {
	t.Helper()
	store := memory.NewStore(time.Second)
	for _, id := range items {
		store.SeedItem(entity.Item{ID: id, Code: id, Name: id})
	}
	ledger := inventory.NewStockLedger(memory.NewTxRunner(store), memory.NewItemRepository(store), memory.NewStockMovementRepository(store))
	return ledger, store
}

func TestRecordMovement_UpdatesQuantityAndChain(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()

	in, err := ledger.RecordMovement(ctx, inventory.MovementInput{ItemID: "projector", Type: entity.MovementTypeIN, Amount: 5, ActorID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), in.Sequence)
	assert.Equal(t, int64(0), in.QuantityBefore)
	assert.Equal(t, int64(5), in.QuantityAfter)

	out, err := ledger.RecordMovement(ctx, inventory.MovementInput{ItemID: "projector", Type: entity.MovementTypeOUT, Amount: 2, ActorID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Sequence)
	assert.Equal(t, in.QuantityAfter, out.QuantityBefore)
	assert.Equal(t, int64(3), out.QuantityAfter)
}

func TestRecordMovement_InsufficientStockLeavesNoTrace(t *testing.T) {
	ledger, store := newLedger(t, "projector")
	ctx := context.Background()
	_, err := ledger.RecordMovement(ctx, inventory.MovementInput{ItemID: "projector", Type: entity.MovementTypeIN, Amount: 2, ActorID: "u-1"})
	require.NoError(t, err)

	_, err = ledger.RecordMovement(ctx, inventory.MovementInput{ItemID: "projector", Type: entity.MovementTypeOUT, Amount: 3, ActorID: "u-1"})
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(3), stockErr.Shortages[0].Requested)
	assert.Equal(t, int64(2), stockErr.Shortages[0].Available)

	item, err := memory.NewItemRepository(store).GetByID(ctx, "projector")
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Quantity)
	last, err := memory.NewStockMovementRepository(store).LastSequence(ctx, "projector")
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestRecordMovement_Validation(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()

	tests := []struct {
		name string
		in   inventory.MovementInput
		want error
	}{
		{"sin ítem", inventory.MovementInput{Type: entity.MovementTypeIN, Amount: 1}, domain.ErrInvalidInput},
		{"tipo desconocido", inventory.MovementInput{ItemID: "projector", Type: "MOVE", Amount: 1}, domain.ErrInvalidInput},
		{"cantidad cero", inventory.MovementInput{ItemID: "projector", Type: entity.MovementTypeIN}, domain.ErrInvalidInput},
		{"ítem inexistente", inventory.MovementInput{ItemID: "ghost", Type: entity.MovementTypeIN, Amount: 1}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.RecordMovement(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdjust_RequiresApproverAndNote(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()
	staff := entity.NewPrincipal("u-2", "d-1", entity.RoleFuncionario)

	_, err := ledger.Adjust(ctx, staff, "projector", "in", 3, "compra")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = ledger.Adjust(ctx, admin, "projector", "in", 3, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	mov, err := ledger.Adjust(ctx, admin, "projector", "in", 3, "compra")
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeIN, mov.Type)
	assert.Nil(t, mov.RequestID)
	assert.Equal(t, "u-admin", mov.ActorID)
}

func TestHistory_PagesNewestFirst(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := ledger.Adjust(ctx, admin, "projector", entity.MovementTypeIN, 1, "lote")
		require.NoError(t, err)
	}

	page, err := ledger.History(ctx, "projector", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Items[0].Sequence)
	assert.Equal(t, int64(4), page.Items[1].Sequence)
	require.NotEmpty(t, page.NextPageToken)

	page, err = ledger.History(ctx, "projector", page.NextPageToken, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Items[0].Sequence)

	page, err = ledger.History(ctx, "projector", page.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].Sequence)
	assert.Empty(t, page.NextPageToken)
}

func TestHistory_Errors(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()

	_, err := ledger.History(ctx, "projector", "%%%", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ledger.History(ctx, "ghost", "", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := ledger.History(ctx, "projector", "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextPageToken)
}

func TestPageToken_RoundTrip(t *testing.T) {
	seq, err := inventory.DecodePageToken(inventory.EncodePageToken(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	_, err = inventory.DecodePageToken("c2VxOi0x") // "seq:-1"
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerify_ConsistentAfterMixedMovements(t *testing.T) {
	ledger, _ := newLedger(t, "projector")
	ctx := context.Background()
	_, err := ledger.Adjust(ctx, admin, "projector", entity.MovementTypeIN, 10, "compra")
	require.NoError(t, err)
	_, err = ledger.Adjust(ctx, admin, "projector", entity.MovementTypeOUT, 4, "baja por daño")
	require.NoError(t, err)

	check, err := ledger.Verify(ctx, "projector")
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, int64(6), check.StoredQuantity)
	assert.Equal(t, int64(6), check.ReplayedQuantity)
	assert.Equal(t, int64(10), check.TotalIn)
	assert.Equal(t, int64(4), check.TotalOut)
	assert.Equal(t, 2, check.Movements)
}
