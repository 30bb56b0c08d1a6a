package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intelmarket/core"
)

func TestLog_Settle(t *testing.T) {
	l := NewLog(5, nil)
	tx, err := l.Settle("buyer", "seller", "listing-1", 0.5, "commit-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, 0.5, tx.Price)
	assert.Equal(t, "commit-1", tx.CommitID)
	assert.Nil(t, tx.Rating)
	assert.Equal(t, 1, l.Count())
}

func TestLog_SettleRejectsEmptyKeys(t *testing.T) {
	l := NewLog(5, nil)
	for _, args := range [][3]string{
		{"", "seller", "listing"},
		{"buyer", "", "listing"},
		{"buyer", "seller", ""},
	} {
		_, err := l.Settle(args[0], args[1], args[2], 1, "")
		assert.ErrorIs(t, err, core.ErrInvalidReference)
	}
	assert.Equal(t, 0, l.Count())
}

func TestLog_RateFirstUnratedMatch(t *testing.T) {
	l := NewLog(5, nil)
	first, err := l.Settle("buyer", "seller", "listing-1", 0.5, "")
	require.NoError(t, err)
	second, err := l.Settle("buyer", "seller", "listing-1", 0.5, "")
	require.NoError(t, err)

	rated, err := l.Rate("buyer", "listing-1", 4, "solid")
	require.NoError(t, err)
	assert.Equal(t, first.ID, rated.ID)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "solid", rated.Review)

	// The second purchase can still be rated separately.
	rated2, err := l.Rate("buyer", "listing-1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, rated2.ID)
}

func TestLog_RateTwiceFails(t *testing.T) {
	l := NewLog(5, nil)
	_, err := l.Settle("buyer", "seller", "listing-1", 0.5, "")
	require.NoError(t, err)

	_, err = l.Rate("buyer", "listing-1", 5, "")
	require.NoError(t, err)
	_, err = l.Rate("buyer", "listing-1", 1, "changed my mind")
	assert.ErrorIs(t, err, core.ErrAlreadyRated)

	// The stored rating is untouched by the failed second attempt.
	txs := l.ForListing("listing-1")
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Rating)
	assert.Equal(t, 5, *txs[0].Rating)
	assert.Empty(t, txs[0].Review)
}

func TestLog_RateWithoutPurchaseFails(t *testing.T) {
	l := NewLog(5, nil)
	_, err := l.Rate("buyer", "listing-1", 5, "")
	assert.ErrorIs(t, err, core.ErrAlreadyRated)
}

func TestLog_RateOutOfRange(t *testing.T) {
	l := NewLog(5, nil)
	_, err := l.Settle("buyer", "seller", "listing-1", 0.5, "")
	require.NoError(t, err)

	for _, score := range []int{0, -1, 6, 100} {
		_, err = l.Rate("buyer", "listing-1", score, "")
		assert.ErrorIs(t, err, core.ErrRatingOutOfRange, "score %d", score)
	}
}

func TestLog_ForAgent(t *testing.T) {
	l := NewLog(5, nil)
	_, err := l.Settle("alice", "bob", "l1", 1, "")
	require.NoError(t, err)
	_, err = l.Settle("carol", "alice", "l2", 2, "")
	require.NoError(t, err)
	_, err = l.Settle("carol", "bob", "l1", 1, "")
	require.NoError(t, err)

	assert.Len(t, l.ForAgent("alice"), 2)
	assert.Len(t, l.ForAgent("bob"), 2)
	assert.Len(t, l.ForAgent("carol"), 2)
	assert.Empty(t, l.ForAgent("ghost"))
}

func TestLog_VolumeAndAll(t *testing.T) {
	l := NewLog(5, nil)
	_, err := l.Settle("alice", "bob", "l1", 1.5, "")
	require.NoError(t, err)
	_, err = l.Settle("alice", "bob", "l1", 2.5, "")
	require.NoError(t, err)

	assert.InDelta(t, 4.0, l.Volume(), 1e-9)
	assert.Len(t, l.All(), 2)
}

func TestLog_CloneIsolation(t *testing.T) {
	l := NewLog(5, nil)
	tx, err := l.Settle("alice", "bob", "l1", 1, "")
	require.NoError(t, err)

	rating := 3
	tx.Rating = &rating // mutating the returned clone
	stored, err := l.Get(tx.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Rating)
}
