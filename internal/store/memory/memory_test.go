package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldorder/backend/internal/domain"
	"fieldorder/backend/internal/store"
)

func newStoreWithCustomer(t *testing.T, id string, dueCents int64) *Store {
	t.Helper()
	s := New()
	_, err := s.CreateCustomer(context.Background(), domain.Customer{ID: id, Name: "Test", DueCents: dueCents})
	require.NoError(t, err)
	return s
}

func TestUpsertOrderSlotCreateThenOverwrite(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 0)
	ctx := context.Background()

	saved, created, err := s.UpsertOrderSlot(ctx, domain.OrderSlot{
		CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftAM,
		Quantity: 5, TotalCents: 12500,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, saved.CreatedAt.IsZero())

	saved, created, err = s.UpsertOrderSlot(ctx, domain.OrderSlot{
		CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftAM,
		Quantity: 3, TotalCents: 7500,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, saved.Quantity)
	assert.Equal(t, int64(7500), saved.TotalCents)

	// Only one slot exists for the tuple.
	slots, err := s.ListOrderSlots(ctx, "CUST-001", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 3, slots[0].Quantity)
}

func TestUpsertOrderSlotUnknownCustomer(t *testing.T) {
	s := New()
	_, _, err := s.UpsertOrderSlot(context.Background(), domain.OrderSlot{
		CustomerID: "CUST-404", Date: "2024-01-10", Shift: domain.ShiftAM, Quantity: 1,
	})
	require.ErrorIs(t, err, store.ErrCustomerNotFound)
}

func TestListOrderSlotsOrderedByDateThenShift(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 0)
	ctx := context.Background()

	for _, slot := range []domain.OrderSlot{
		{CustomerID: "CUST-001", Date: "2024-01-11", Shift: domain.ShiftPM, Quantity: 1},
		{CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftPM, Quantity: 2},
		{CustomerID: "CUST-001", Date: "2024-01-10", Shift: domain.ShiftAM, Quantity: 3},
		{CustomerID: "CUST-001", Date: "2024-02-01", Shift: domain.ShiftAM, Quantity: 4},
	} {
		_, _, err := s.UpsertOrderSlot(ctx, slot)
		require.NoError(t, err)
	}

	slots, err := s.ListOrderSlots(ctx, "CUST-001", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, domain.ShiftAM, slots[0].Shift)
	assert.Equal(t, domain.ShiftPM, slots[1].Shift)
	assert.Equal(t, "2024-01-11", slots[2].Date)
}

func TestCreateCustomerDuplicate(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 0)
	_, err := s.CreateCustomer(context.Background(), domain.Customer{ID: "CUST-001"})
	require.ErrorIs(t, err, store.ErrCustomerExists)
}

func TestApplyCollection(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 50000)
	ctx := context.Background()

	txn, err := s.ApplyCollection(ctx, "CUST-001", 20000, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), txn.ResultingDueCents)
	assert.NotEmpty(t, txn.ID)

	// Over-collection leaves the due untouched and reports it.
	_, err = s.ApplyCollection(ctx, "CUST-001", 40000, "admin")
	var exceeds *store.ExceedsDueError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, int64(30000), exceeds.DueCents)

	due, err := s.GetBalance(ctx, "CUST-001")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), due)

	_, err = s.ApplyCollection(ctx, "CUST-001", -1, "admin")
	require.ErrorIs(t, err, store.ErrInvalidAmount)

	_, err = s.ApplyCollection(ctx, "CUST-404", 100, "admin")
	require.ErrorIs(t, err, store.ErrCustomerNotFound)
}

func TestApplyCollectionConcurrentExactDrain(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 10000)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ApplyCollection(ctx, "CUST-001", 10000, "admin")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			var exceeds *store.ExceedsDueError
			require.ErrorAs(t, err, &exceeds)
		}
	}
	assert.Equal(t, 1, successes)

	due, err := s.GetBalance(ctx, "CUST-001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), due)
}

func TestListCollectionsNewestFirstWithLimit(t *testing.T) {
	s := newStoreWithCustomer(t, "CUST-001", 60000)
	ctx := context.Background()

	for _, amount := range []int64{10000, 20000, 30000} {
		_, err := s.ApplyCollection(ctx, "CUST-001", amount, "admin")
		require.NoError(t, err)
	}

	txns, err := s.ListCollections(ctx, "CUST-001", 2)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(30000), txns[0].AmountCents)
	assert.Equal(t, int64(20000), txns[1].AmountCents)
}

func TestUserAccounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "warung1", Password: "x", Role: "customer", CustomerID: "CUST-001", Active: true}))
	require.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "warung1"}), store.ErrUserExists)

	require.NoError(t, s.UpdateUserPassword(ctx, "warung1", "y"))
	require.ErrorIs(t, s.UpdateUserPassword(ctx, "ghost", "y"), store.ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "y", users[0].Password)
}

func TestNewSeededHasDemoData(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	due, err := s.GetBalance(ctx, "CUST-001")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), due)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
