package domain

import "time"

// Shift is one of the two daily ordering periods.
type Shift string

const (
	ShiftAM Shift = "AM"
	ShiftPM Shift = "PM"
)

// OrderSlot is the unique order record for a (customer, business date, shift)
// tuple. Date is the booking date in YYYY-MM-DD form, not the wall-clock date
// the request arrived at.
type OrderSlot struct {
	CustomerID string    `json:"customer_id"`
	Date       string    `json:"date"`
	Shift      Shift     `json:"shift"`
	Quantity   int       `json:"quantity"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DueCents  int64     `json:"due_cents"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionTransaction is the append-only audit record of a single cash
// collection. Immutable once written.
type CollectionTransaction struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	AmountCents       int64     `json:"amount_cents"`
	ResultingDueCents int64     `json:"resulting_due_cents"`
	CollectedBy       string    `json:"collected_by"`
	CreatedAt         time.Time `json:"created_at"`
}

type UserAccount struct {
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	CustomerID string    `json:"customer_id,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username   string
	Role       string
	CustomerID string
}

type ShiftAllowedResponse struct {
	Shift   Shift `json:"shift"`
	Allowed bool  `json:"allowed"`
}

type UpsertOrderRequest struct {
	CustomerID  string  `json:"customer_id"`
	Date        string  `json:"date"`
	Shift       string  `json:"shift"`
	Quantity    int     `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
}

type UpsertOrderResponse struct {
	Order  OrderSlotView `json:"order"`
	Status string        `json:"status"`
}

// OrderSlotView is the API rendering of an OrderSlot with decimal money.
type OrderSlotView struct {
	CustomerID  string    `json:"customer_id"`
	Date        string    `json:"date"`
	Shift       Shift     `json:"shift"`
	Quantity    int       `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DayOrders holds the at-most-two slots of a calendar date. A nil shift means
// no order was recorded for it.
type DayOrders struct {
	AM *OrderSlotView `json:"am"`
	PM *OrderSlotView `json:"pm"`
}

type OrderHistoryResponse struct {
	Days   map[string]DayOrders `json:"days"`
	Badges map[string]int       `json:"badges"`
}

type RegisterCustomerRequest struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	OpeningDue float64 `json:"opening_due"`
}

type BalanceResponse struct {
	CustomerID string  `json:"customer_id"`
	AmountDue  float64 `json:"amount_due"`
}

type CollectRequest struct {
	Amount float64 `json:"amount"`
}

type CollectResponse struct {
	TransactionID    string  `json:"transaction_id"`
	UpdatedAmountDue float64 `json:"updated_amount_due"`
}

type CollectionView struct {
	ID           string    `json:"id"`
	Amount       float64   `json:"amount"`
	ResultingDue float64   `json:"resulting_due"`
	CollectedBy  string    `json:"collected_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type CollectionListResponse struct {
	Collections []CollectionView `json:"collections"`
}

type CustomerLoginCreateRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	CustomerID string `json:"customer_id"`
}
