// Package postgres implements the store.Repository against PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"fieldorder/backend/internal/domain"
	"fieldorder/backend/internal/store"
	"fieldorder/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dateLayout = "2006-01-02"

type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool, verifies connectivity and applies the embedded
// schema migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.runMigrations(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) GetOrderSlot(ctx context.Context, customerID, date string, shift domain.Shift) (*domain.OrderSlot, error) {
	var (
		slot      domain.OrderSlot
		orderDate time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT customer_id, order_date, shift, quantity, total_cents, created_at, updated_at
		FROM order_slots
		WHERE customer_id = $1 AND order_date = $2 AND shift = $3
	`, customerID, date, string(shift)).Scan(
		&slot.CustomerID, &orderDate, &slot.Shift, &slot.Quantity, &slot.TotalCents, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSlotNotFound
		}
		return nil, fmt.Errorf("get order slot: %w", err)
	}
	slot.Date = orderDate.Format(dateLayout)
	return &slot, nil
}

func (s *Store) UpsertOrderSlot(ctx context.Context, slot domain.OrderSlot) (*domain.OrderSlot, bool, error) {
	if slot.CustomerID == "" || slot.Date == "" || slot.Quantity < 0 || slot.TotalCents < 0 {
		return nil, false, store.ErrInvalidOrder
	}

	var (
		saved     domain.OrderSlot
		orderDate time.Time
		inserted  bool
	)
	// xmax = 0 distinguishes a fresh insert from a conflict update.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO order_slots (customer_id, order_date, shift, quantity, total_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, order_date, shift)
		DO UPDATE SET quantity = EXCLUDED.quantity, total_cents = EXCLUDED.total_cents, updated_at = now()
		RETURNING customer_id, order_date, shift, quantity, total_cents, created_at, updated_at, (xmax = 0)
	`, slot.CustomerID, slot.Date, string(slot.Shift), slot.Quantity, slot.TotalCents).Scan(
		&saved.CustomerID, &orderDate, &saved.Shift, &saved.Quantity, &saved.TotalCents,
		&saved.CreatedAt, &saved.UpdatedAt, &inserted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ForeignKeyViolation:
				return nil, false, store.ErrCustomerNotFound
			case pgerrcode.CheckViolation, pgerrcode.InvalidDatetimeFormat, pgerrcode.DatetimeFieldOverflow:
				return nil, false, store.ErrInvalidOrder
			}
		}
		return nil, false, fmt.Errorf("upsert order slot: %w", err)
	}
	saved.Date = orderDate.Format(dateLayout)
	return &saved, inserted, nil
}

func (s *Store) ListOrderSlots(ctx context.Context, customerID, fromDate, toDate string) ([]domain.OrderSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, order_date, shift, quantity, total_cents, created_at, updated_at
		FROM order_slots
		WHERE customer_id = $1 AND order_date BETWEEN $2 AND $3
		ORDER BY order_date, shift
	`, customerID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("select order slots: %w", err)
	}
	defer rows.Close()

	slots := make([]domain.OrderSlot, 0, 16)
	for rows.Next() {
		var (
			slot      domain.OrderSlot
			orderDate time.Time
		)
		if err := rows.Scan(&slot.CustomerID, &orderDate, &slot.Shift, &slot.Quantity, &slot.TotalCents, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order slot: %w", err)
		}
		slot.Date = orderDate.Format(dateLayout)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return slots, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.DueCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, due_cents)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, customer.ID, customer.Name, customer.DueCents).Scan(&customer.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, store.ErrCustomerExists
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, due_cents, created_at
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&customer.ID, &customer.Name, &customer.DueCents, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &customer, nil
}

func (s *Store) GetBalance(ctx context.Context, customerID string) (int64, error) {
	var due int64
	err := s.pool.QueryRow(ctx, `
		SELECT due_cents FROM customers WHERE id = $1
	`, customerID).Scan(&due)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrCustomerNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return due, nil
}

// ApplyCollection serializes concurrent collections for a customer with a row
// lock, so the read-validate-write-append sequence is a single atomic unit.
// Two admins collecting against the same stale balance cannot both commit.
func (s *Store) ApplyCollection(ctx context.Context, customerID string, amountCents int64, collectedBy string) (*domain.CollectionTransaction, error) {
	if amountCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var due int64
	err = tx.QueryRow(ctx, `
		SELECT due_cents FROM customers WHERE id = $1 FOR UPDATE
	`, customerID).Scan(&due)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("lock customer balance: %w", err)
	}

	if amountCents > due {
		return nil, &store.ExceedsDueError{DueCents: due}
	}

	newDue := due - amountCents
	if _, err := tx.Exec(ctx, `
		UPDATE customers SET due_cents = $2 WHERE id = $1
	`, customerID, newDue); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn := domain.CollectionTransaction{
		ID:                xid.New("col"),
		CustomerID:        customerID,
		AmountCents:       amountCents,
		ResultingDueCents: newDue,
		CollectedBy:       collectedBy,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO collections (id, customer_id, amount_cents, resulting_due_cents, collected_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, txn.ID, txn.CustomerID, txn.AmountCents, txn.ResultingDueCents, txn.CollectedBy).Scan(&txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &txn, nil
}

func (s *Store) ListCollections(ctx context.Context, customerID string, limit int) ([]domain.CollectionTransaction, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, amount_cents, resulting_due_cents, collected_by, created_at
		FROM collections
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer rows.Close()

	result := make([]domain.CollectionTransaction, 0, limit)
	for rows.Next() {
		var txn domain.CollectionTransaction
		if err := rows.Scan(&txn.ID, &txn.CustomerID, &txn.AmountCents, &txn.ResultingDueCents, &txn.CollectedBy, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		result = append(result, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (username, password, role, customer_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.Username, user.Password, user.Role, user.CustomerID, user.Active, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return store.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, password, role, customer_id, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserAccount
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.CustomerID, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}
