package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	stock := &InsufficientStockError{Shortages: []StockShortage{
		{LineNo: 1, ItemID: "a", Requested: 3, Available: 1},
		{LineNo: 3, ItemID: "c", Requested: 2, Available: 0},
	}}
	wrapped := fmt.Errorf("aprobar: %w", stock)

	assert.ErrorIs(t, wrapped, ErrInsufficientStock)
	assert.Contains(t, stock.Error(), "línea 1 ítem a")
	assert.Contains(t, stock.Error(), "línea 3 ítem c")

	var got *InsufficientStockError
	assert.True(t, errors.As(wrapped, &got))
	assert.Len(t, got.Shortages, 2)

	assert.ErrorIs(t, &TransitionError{RequestID: "r", From: "PENDING", Event: "RETURN"}, ErrInvalidTransition)
	assert.ErrorIs(t, &NotFoundError{Kind: "item", ID: "x"}, ErrNotFound)
	assert.ErrorIs(t, Invalid("campo %s", "x"), ErrInvalidInput)
	assert.NotErrorIs(t, Invalid("x"), ErrConflict)
}
