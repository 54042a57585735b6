package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(batchID int64, qty int64, price string) CartLine {
	return CartLine{
		BatchID:   batchID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestCartAddLineMergesSameBatch(t *testing.T) {
	cart := &Cart{}
	require.NoError(t, cart.AddLine(line(7, 2, "12.50")))
	require.NoError(t, cart.AddLine(line(7, 3, "12.50")))

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(5), cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].Total.Equal(decimal.RequireFromString("62.50")))
}

func TestCartAddLineKeepsFirstPriceOnMerge(t *testing.T) {
	cart := &Cart{}
	require.NoError(t, cart.AddLine(line(7, 1, "10.00")))
	// A later add for the same batch carries a different advisory price;
	// the merged line keeps the price captured by the first add.
	require.NoError(t, cart.AddLine(line(7, 1, "11.00")))

	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, cart.Lines[0].Total.Equal(decimal.RequireFromString("20.00")))
}

func TestCartAddLineRejectsNonPositiveQuantity(t *testing.T) {
	cart := &Cart{}
	var vErr *ValidationError

	err := cart.AddLine(line(1, 0, "5.00"))
	require.ErrorAs(t, err, &vErr)

	err = cart.AddLine(line(1, -3, "5.00"))
	require.ErrorAs(t, err, &vErr)
	assert.True(t, cart.Empty())
}

func TestCartRemoveLinePreservesOrder(t *testing.T) {
	cart := &Cart{}
	require.NoError(t, cart.AddLine(line(1, 1, "1.00")))
	require.NoError(t, cart.AddLine(line(2, 1, "2.00")))
	require.NoError(t, cart.AddLine(line(3, 1, "3.00")))

	require.NoError(t, cart.RemoveLine(1))

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, int64(1), cart.Lines[0].BatchID)
	assert.Equal(t, int64(3), cart.Lines[1].BatchID)

	var vErr *ValidationError
	require.ErrorAs(t, cart.RemoveLine(5), &vErr)
	require.ErrorAs(t, cart.RemoveLine(-1), &vErr)
}

func TestCartTotalAndClear(t *testing.T) {
	cart := &Cart{}
	require.NoError(t, cart.AddLine(line(1, 2, "1.25")))
	require.NoError(t, cart.AddLine(line(2, 4, "0.75")))

	assert.True(t, cart.Total().Equal(decimal.RequireFromString("5.50")))

	cart.Clear()
	assert.True(t, cart.Empty())
	assert.True(t, cart.Total().Equal(decimal.Zero))
}
