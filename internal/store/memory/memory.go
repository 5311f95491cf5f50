package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fieldorder/backend/internal/domain"
	"fieldorder/backend/internal/store"
	"fieldorder/backend/internal/xid"
)

type slotKey struct {
	customerID string
	date       string
	shift      domain.Shift
}

// Store is an in-memory Repository used for dev mode and tests. The slot map
// is keyed by the full (customer, date, shift) tuple, so a second write for an
// existing key can only overwrite. ApplyCollection holds the write lock across
// read-validate-write-append, which serializes concurrent collections the same
// way the Postgres row lock does.
type Store struct {
	mu              sync.RWMutex
	slots           map[slotKey]domain.OrderSlot
	customers       map[string]domain.Customer
	collections     map[string][]domain.CollectionTransaction
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		slots:           make(map[slotKey]domain.OrderSlot),
		customers:       make(map[string]domain.Customer),
		collections:     make(map[string][]domain.CollectionTransaction),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with demo customers and login accounts
// for dev mode. Credentials come from SEED_ADMIN_PASSWORD and
// SEED_CUSTOMER_PASSWORD; hardcoded dev defaults are used with a warning when
// unset. Production deployments use PostgreSQL (DATABASE_URL set) instead.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	customers := []domain.Customer{
		{ID: "CUST-001", Name: "Warung Ibu Sari", DueCents: 50000, CreatedAt: now},
		{ID: "CUST-002", Name: "Toko Pak Budi", DueCents: 125000, CreatedAt: now},
		{ID: "CUST-003", Name: "Kios Mbak Rina", DueCents: 0, CreatedAt: now},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}

	s.usersByUsername = seedUsers()
	return s
}

func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	customerPwd := envOr("SEED_CUSTOMER_PASSWORD", "customer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CUSTOMER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CUSTOMER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username   string
		password   string
		role       string
		customerID string
	}{
		{"admin", adminPwd, "admin", ""},
		{"customer", customerPwd, "customer", "CUST-001"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:   u.username,
			Password:   string(hash),
			Role:       u.role,
			CustomerID: u.customerID,
			Active:     true,
			CreatedAt:  now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) Close() error { return nil }

func (s *Store) GetOrderSlot(_ context.Context, customerID, date string, shift domain.Shift) (*domain.OrderSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, exists := s.slots[slotKey{customerID: customerID, date: date, shift: shift}]
	if !exists {
		return nil, store.ErrSlotNotFound
	}
	copySlot := slot
	return &copySlot, nil
}

func (s *Store) UpsertOrderSlot(_ context.Context, slot domain.OrderSlot) (*domain.OrderSlot, bool, error) {
	if slot.CustomerID == "" || slot.Date == "" || slot.Quantity < 0 || slot.TotalCents < 0 {
		return nil, false, store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[slot.CustomerID]; !exists {
		return nil, false, store.ErrCustomerNotFound
	}

	key := slotKey{customerID: slot.CustomerID, date: slot.Date, shift: slot.Shift}
	now := time.Now().UTC()

	existing, exists := s.slots[key]
	if exists {
		existing.Quantity = slot.Quantity
		existing.TotalCents = slot.TotalCents
		existing.UpdatedAt = now
		s.slots[key] = existing
		updated := existing
		return &updated, false, nil
	}

	slot.CreatedAt = now
	slot.UpdatedAt = now
	s.slots[key] = slot
	created := slot
	return &created, true, nil
}

func (s *Store) ListOrderSlots(_ context.Context, customerID, fromDate, toDate string) ([]domain.OrderSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OrderSlot, 0, 16)
	for key, slot := range s.slots {
		if key.customerID != customerID {
			continue
		}
		if key.date < fromDate || key.date > toDate {
			continue
		}
		result = append(result, slot)
	}

	slices.SortFunc(result, func(a, b domain.OrderSlot) int {
		if a.Date != b.Date {
			return strings.Compare(a.Date, b.Date)
		}
		return shiftRank(a.Shift) - shiftRank(b.Shift)
	})

	return result, nil
}

func shiftRank(shift domain.Shift) int {
	if shift == domain.ShiftAM {
		return 0
	}
	return 1
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.DueCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrCustomerExists
	}

	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrCustomerNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) GetBalance(_ context.Context, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return 0, store.ErrCustomerNotFound
	}
	return customer.DueCents, nil
}

func (s *Store) ApplyCollection(_ context.Context, customerID string, amountCents int64, collectedBy string) (*domain.CollectionTransaction, error) {
	if amountCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrCustomerNotFound
	}
	if amountCents > customer.DueCents {
		return nil, &store.ExceedsDueError{DueCents: customer.DueCents}
	}

	customer.DueCents -= amountCents
	s.customers[customerID] = customer

	txn := domain.CollectionTransaction{
		ID:                xid.New("col"),
		CustomerID:        customerID,
		AmountCents:       amountCents,
		ResultingDueCents: customer.DueCents,
		CollectedBy:       collectedBy,
		CreatedAt:         time.Now().UTC(),
	}
	s.collections[customerID] = append(s.collections[customerID], txn)

	created := txn
	return &created, nil
}

func (s *Store) ListCollections(_ context.Context, customerID string, limit int) ([]domain.CollectionTransaction, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.collections[customerID]
	result := make([]domain.CollectionTransaction, len(history))
	copy(result, history)

	// Newest first, mirroring the Postgres query.
	slices.Reverse(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrUserExists
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrUserNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
