package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldorder/backend/internal/domain"
)

func TestAggregateMorningOnlyDay(t *testing.T) {
	feed := []domain.OrderSlot{
		{CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftAM, Quantity: 5, TotalCents: 12500},
	}

	view := Aggregate(feed)

	day, ok := view.Days["2024-01-10"]
	require.True(t, ok)
	require.NotNil(t, day.AM)
	assert.Nil(t, day.PM)
	assert.Equal(t, 5, day.AM.Quantity)
	assert.Equal(t, 125.00, day.AM.TotalAmount)
	assert.Equal(t, 5, view.Badges["2024-01-10"])
}

func TestAggregateBothShifts(t *testing.T) {
	feed := []domain.OrderSlot{
		{CustomerID: "CUST-001", Date: "2024-01-11", Shift: domain.ShiftAM, Quantity: 3, TotalCents: 7500},
		{CustomerID: "CUST-001", Date: "2024-01-11", Shift: domain.ShiftPM, Quantity: 2, TotalCents: 5000},
		{CustomerID: "CUST-001", Date: "2024-01-12", Shift: domain.ShiftPM, Quantity: 4, TotalCents: 10000},
	}

	view := Aggregate(feed)

	require.Len(t, view.Days, 2)
	assert.Equal(t, 5, view.Badges["2024-01-11"])
	assert.Equal(t, 4, view.Badges["2024-01-12"])
	assert.Nil(t, view.Days["2024-01-12"].AM)
}

func TestAggregateZeroQuantityOrderKeepsDayDropsBadge(t *testing.T) {
	// A zero-quantity order is a valid recorded order: it must appear in the
	// day mapping, but the day earns no badge.
	feed := []domain.OrderSlot{
		{CustomerID: "CUST-001", Date: "2024-01-13", Shift: domain.ShiftAM, Quantity: 0, TotalCents: 0},
	}

	view := Aggregate(feed)

	day, ok := view.Days["2024-01-13"]
	require.True(t, ok)
	require.NotNil(t, day.AM)
	assert.Equal(t, 0, day.AM.Quantity)

	_, hasBadge := view.Badges["2024-01-13"]
	assert.False(t, hasBadge)
}

func TestAggregateIdempotent(t *testing.T) {
	feed := []domain.OrderSlot{
		{CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftAM, Quantity: 5, TotalCents: 12500},
		{CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftPM, Quantity: 1, TotalCents: 2500},
	}

	first := Aggregate(feed)
	second := Aggregate(feed)

	assert.Equal(t, first, second)
}

func TestAggregateEmptyFeed(t *testing.T) {
	view := Aggregate(nil)

	assert.Empty(t, view.Days)
	assert.Empty(t, view.Badges)
}
