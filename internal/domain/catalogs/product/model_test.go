package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belegwerk/internal/core/types"
)

func TestApplyReceiptWeightedAverage(t *testing.T) {
	now := time.Now().UTC()

	p := NewFromReceipt("Tomaten", "kg", types.NewQuantityFromInt(10), types.MustMoney("2.00"), nil, now)
	require.True(t, p.AvgPrice.Equal(types.MustMoney("2.00")))
	assert.Equal(t, types.NewQuantityFromInt(10), p.CurrentStock)

	// 10 @ 2.00 + 10 @ 4.00 -> 20 @ 3.00
	p.ApplyReceipt(types.NewQuantityFromInt(10), types.MustMoney("4.00"), now)
	assert.Equal(t, types.NewQuantityFromInt(20), p.CurrentStock)
	assert.True(t, p.AvgPrice.Equal(types.MustMoney("3.00")), "got %s", p.AvgPrice)
}

func TestApplyReceiptZeroPriceKeepsAverage(t *testing.T) {
	now := time.Now().UTC()

	p := NewFromReceipt("Gurken", "kg", types.NewQuantityFromInt(5), types.MustMoney("1.50"), nil, now)

	// Unpriced delivery note line: stock moves, price does not.
	p.ApplyReceipt(types.NewQuantityFromInt(5), types.Zero(), now)
	assert.Equal(t, types.NewQuantityFromInt(10), p.CurrentStock)
	assert.True(t, p.AvgPrice.Equal(types.MustMoney("1.50")), "got %s", p.AvgPrice)
}

func TestNewFromReceiptSeedsMinStock(t *testing.T) {
	now := time.Now().UTC()

	// ceil(10 * 0.3) = 3
	p := NewFromReceipt("Zwiebeln", "kg", types.NewQuantityFromInt(10), types.MustMoney("0.80"), nil, now)
	assert.Equal(t, types.NewQuantityFromInt(3), p.MinStock)

	// ceil(7 * 0.3) = ceil(2.1) = 3
	p = NewFromReceipt("Knoblauch", "kg", types.NewQuantityFromInt(7), types.MustMoney("3.20"), nil, now)
	assert.Equal(t, types.NewQuantityFromInt(3), p.MinStock)

	// ceil(1 * 0.3) = 1
	p = NewFromReceipt("Safran", "g", types.NewQuantityFromInt(1), types.MustMoney("9.90"), nil, now)
	assert.Equal(t, types.NewQuantityFromInt(1), p.MinStock)
}

func TestNewFromReceiptZeroPrice(t *testing.T) {
	p := NewFromReceipt("Petersilie", "Bund", types.NewQuantityFromInt(2), types.Zero(), nil, time.Now().UTC())
	assert.True(t, p.AvgPrice.IsZero())
	assert.Equal(t, CategorySonstiges, p.Category)
}

func TestIsLowStock(t *testing.T) {
	p := &Product{MinStock: types.NewQuantityFromInt(5)}

	p.CurrentStock = types.NewQuantityFromInt(6)
	assert.False(t, p.IsLowStock())

	p.CurrentStock = types.NewQuantityFromInt(5)
	assert.False(t, p.IsLowStock(), "stock exactly at minimum is not low")

	p.CurrentStock = types.NewQuantityFromInt(4)
	assert.True(t, p.IsLowStock())
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	p := &Product{CurrentStock: types.NewQuantityFromInt(3)}

	p.AdjustStock(types.NewQuantityFromInt(-5))
	assert.True(t, p.CurrentStock.IsZero())

	p.AdjustStock(types.NewQuantityFromInt(2))
	assert.Equal(t, types.NewQuantityFromInt(2), p.CurrentStock)
}
