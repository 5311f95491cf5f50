package store

import (
	"context"
	"errors"
	"fmt"

	"fieldorder/backend/internal/domain"
)

var (
	ErrSlotNotFound     = errors.New("order slot not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCustomerExists   = errors.New("customer already exists")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidAmount    = errors.New("invalid collection amount")
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
)

// ExceedsDueError rejects a collection larger than the customer's current
// due. It carries the due so callers can report it without a second read.
type ExceedsDueError struct {
	DueCents int64
}

func (e *ExceedsDueError) Error() string {
	return fmt.Sprintf("cannot collect more than amount due: %.2f", float64(e.DueCents)/100)
}

type Repository interface {
	Close() error

	GetOrderSlot(ctx context.Context, customerID, date string, shift domain.Shift) (*domain.OrderSlot, error)
	// UpsertOrderSlot creates the slot if absent, else overwrites quantity and
	// total and bumps updated_at. The bool result reports whether the slot was
	// newly created. Uniqueness of (customer, date, shift) is structural: a
	// second write for the same tuple can only overwrite, never duplicate.
	UpsertOrderSlot(ctx context.Context, slot domain.OrderSlot) (*domain.OrderSlot, bool, error)
	// ListOrderSlots returns slots in [fromDate, toDate] ordered by date
	// ascending, AM before PM within a date.
	ListOrderSlots(ctx context.Context, customerID, fromDate, toDate string) ([]domain.OrderSlot, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	GetBalance(ctx context.Context, customerID string) (int64, error)
	// ApplyCollection atomically validates amountCents against the current
	// due, writes the new due and appends the audit transaction. Either both
	// writes happen or neither does.
	ApplyCollection(ctx context.Context, customerID string, amountCents int64, collectedBy string) (*domain.CollectionTransaction, error)
	ListCollections(ctx context.Context, customerID string, limit int) ([]domain.CollectionTransaction, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
