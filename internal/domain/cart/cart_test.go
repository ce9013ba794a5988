package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMergesAndKeepsFirstPrice(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Add(Line{ProductID: "p1", ProductName: "Pen", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}))
	require.NoError(t, c.Add(Line{ProductID: "p1", ProductName: "Pen", Quantity: 2, UnitPrice: decimal.NewFromInt(12)}))

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.True(t, c.Lines[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, c.Total().Equal(decimal.NewFromInt(30)))
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	c := New("buyer-1")
	assert.ErrorIs(t, c.Add(Line{ProductID: "p1", Quantity: 0}), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestRemoveAndClear(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Add(Line{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}))
	require.NoError(t, c.Add(Line{ProductID: "p2", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}))

	assert.ErrorIs(t, c.Remove("p3"), ErrNotFound)
	require.NoError(t, c.Remove("p1"))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}
