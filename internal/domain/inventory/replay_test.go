package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

func mov(seq int64, typ string, amount, before, after int64, requestID string) *entity.StockMovement {
	m := &entity.StockMovement{ID: "m", ItemID: "it1", Sequence: seq, Type: typ, Amount: amount, QuantityBefore: before, QuantityAfter: after}
	if requestID != "" {
		m.RequestID = &requestID
	}
	return m
}

func TestReplay_ReconstructsQuantity(t *testing.T) {
	qty, in, out, err := Replay([]*entity.StockMovement{
		mov(1, entity.MovementTypeIN, 5, 0, 5, ""),
		mov(2, entity.MovementTypeOUT, 3, 5, 2, "r1"),
		mov(3, entity.MovementTypeIN, 3, 2, 5, "r1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), qty)
	assert.Equal(t, int64(8), in)
	assert.Equal(t, int64(3), out)
}

func TestReplay_DetectsBrokenChain(t *testing.T) {
	cases := map[string][]*entity.StockMovement{
		"secuencia repetida":   {mov(1, entity.MovementTypeIN, 5, 0, 5, ""), mov(1, entity.MovementTypeOUT, 1, 5, 4, "")},
		"aritmética":           {mov(1, entity.MovementTypeIN, 5, 0, 6, "")},
		"before no encadenado": {mov(1, entity.MovementTypeIN, 5, 0, 5, ""), mov(2, entity.MovementTypeOUT, 1, 4, 3, "")},
		"cantidad negativa":    {mov(1, entity.MovementTypeOUT, 1, 0, -1, "")},
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := Replay(list)
			assert.Error(t, err)
		})
	}
}

func TestReplay_EmptyHistoryIsZero(t *testing.T) {
	qty, in, out, err := Replay(nil)
	require.NoError(t, err)
	assert.Zero(t, qty+in+out)
}

func TestOutstanding(t *testing.T) {
	list := []*entity.StockMovement{
		{ItemID: "a", Type: entity.MovementTypeOUT, Amount: 2},
		{ItemID: "b", Type: entity.MovementTypeOUT, Amount: 1},
		{ItemID: "a", Type: entity.MovementTypeOUT, Amount: 1},
		{ItemID: "b", Type: entity.MovementTypeIN, Amount: 1},
	}
	assert.Equal(t, map[string]int64{"a": 3}, Outstanding(list))
}
