package ticket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/ticket"
)

func TestBatchNum_Order(t *testing.T) {
	assert.True(t, ticket.Promotional < ticket.Numbered(1))
	assert.True(t, ticket.Numbered(1) < ticket.Numbered(2))
	assert.Equal(t, ticket.Numbered(3), ticket.Numbered(2).Next())
	assert.Equal(t, ticket.Numbered(1), ticket.Promotional.Next())
}

func TestBatchNum_String(t *testing.T) {
	assert.Equal(t, "promo", ticket.Promotional.String())
	assert.Equal(t, "batch 4", ticket.Numbered(4).String())
}

func TestNumbered_RejectsZero(t *testing.T) {
	assert.Panics(t, func() { ticket.Numbered(0) })
}

func TestFromPrices_IndexZeroIsPromo(t *testing.T) {
	cat := ticket.FromPrices([]int64{5000, 6000, 7000})

	promo, ok := cat.Promo()
	require.True(t, ok)
	assert.Equal(t, int64(5000), promo.Price)

	b2, ok := cat.Lookup(ticket.Numbered(2))
	require.True(t, ok)
	assert.Equal(t, ticket.Batch{Num: ticket.Numbered(2), Price: 7000}, b2)

	_, ok = cat.Lookup(ticket.Numbered(3))
	assert.False(t, ok)
	assert.Equal(t, 3, cat.Len())
}

func TestNewCatalog_SortsAndValidates(t *testing.T) {
	cat, err := ticket.NewCatalog(
		ticket.Batch{Num: ticket.Numbered(2), Price: 7000},
		ticket.Batch{Num: ticket.Promotional, Price: 5000},
	)
	require.NoError(t, err)
	batches := cat.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, ticket.Promotional, batches[0].Num)

	_, err = ticket.NewCatalog(
		ticket.Batch{Num: ticket.Numbered(1), Price: 1},
		ticket.Batch{Num: ticket.Numbered(1), Price: 2},
	)
	assert.ErrorIs(t, err, ticket.ErrDuplicateBatch)

	_, err = ticket.NewCatalog(ticket.Batch{Num: ticket.Numbered(1), Price: -1})
	assert.ErrorIs(t, err, ticket.ErrNegativePrice)
}

func TestCatalog_MinPrice(t *testing.T) {
	cat := ticket.FromPrices([]int64{0, 6000, 4500})
	p, ok := cat.MinPrice()
	require.True(t, ok)
	assert.Equal(t, int64(4500), p)
	assert.True(t, cat.HasFree())

	_, ok = ticket.FromPrices([]int64{0}).MinPrice()
	assert.False(t, ok)

	var empty ticket.Catalog
	assert.True(t, empty.IsEmpty())
	_, ok = empty.MinPrice()
	assert.False(t, ok)
}

func TestBatchAmount_Price(t *testing.T) {
	a := ticket.BatchAmount{Batch: ticket.Batch{Num: ticket.Numbered(1), Price: 6000}, Quantity: 3}
	assert.Equal(t, int64(18000), a.Price())
	assert.Equal(t, "3x batch 1", a.String())
}
