// Package service implements the ordering and cash-collection business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"fieldorder/backend/internal/cache"
	"fieldorder/backend/internal/clients/directory"
	"fieldorder/backend/internal/domain"
	"fieldorder/backend/internal/history"
	"fieldorder/backend/internal/shiftwindow"
	"fieldorder/backend/internal/store"
)

// ErrWindowClosed rejects order writes outside the shift's allowed time
// range, including writes against a past business date.
var (
	ErrWindowClosed = errors.New("shift window closed")
	ErrInvalidDate  = errors.New("invalid date")
	ErrForbidden    = errors.New("forbidden")
)

const dateLayout = "2006-01-02"

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	policy     *shiftwindow.Policy
	clock      shiftwindow.Clock
	cache      cache.HistoryCache
	directory  *directory.Client
	logger     *zap.SugaredLogger
	historyTTL time.Duration
}

// New wires the service. directoryClient may be nil: the external customer
// directory is optional and skipped when not configured.
func New(repo store.Repository, policy *shiftwindow.Policy, clock shiftwindow.Clock, historyCache cache.HistoryCache, directoryClient *directory.Client, logger *zap.SugaredLogger, historyTTL time.Duration) *Service {
	if clock == nil {
		clock = shiftwindow.SystemClock{}
	}
	if historyCache == nil {
		historyCache = cache.NoopHistoryCache{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if historyTTL <= 0 {
		historyTTL = 30 * time.Second
	}

	return &Service{
		repo:       repo,
		policy:     policy,
		clock:      clock,
		cache:      historyCache,
		directory:  directoryClient,
		logger:     logger,
		historyTTL: historyTTL,
	}
}

func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CheckShiftAllowed is the advisory pre-check endpoint. The same policy is
// re-evaluated inside UpsertOrder, so a window closing between the check and
// the mutation cannot slip an order through.
func (s *Service) CheckShiftAllowed(shift domain.Shift) (bool, error) {
	return s.policy.IsAllowed(shift, s.clock.Now())
}

// UpsertOrder creates or overwrites the order slot for (customer, date,
// shift). The shift window is evaluated against the wall clock at call time;
// a business date already in the past is rejected outright.
func (s *Service) UpsertOrder(ctx context.Context, req domain.UpsertOrderRequest) (domain.UpsertOrderResponse, error) {
	shift := domain.Shift(strings.ToUpper(strings.TrimSpace(req.Shift)))
	if err := s.policy.Validate(shift); err != nil {
		return domain.UpsertOrderResponse{}, err
	}

	date, err := normalizeDate(req.Date)
	if err != nil {
		return domain.UpsertOrderResponse{}, err
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.CustomerID == "" || req.Quantity < 0 || !validAmount(req.TotalAmount) {
		return domain.UpsertOrderResponse{}, store.ErrInvalidOrder
	}

	if actor, ok := ActorFromContext(ctx); ok && actor.Role == "customer" && actor.CustomerID != req.CustomerID {
		return domain.UpsertOrderResponse{}, fmt.Errorf("%w: cannot place order for another customer", ErrForbidden)
	}

	now := s.clock.Now()
	allowed, err := s.policy.IsAllowed(shift, now)
	if err != nil {
		return domain.UpsertOrderResponse{}, err
	}
	if !allowed {
		return domain.UpsertOrderResponse{}, ErrWindowClosed
	}
	if date < now.In(s.policy.Location()).Format(dateLayout) {
		return domain.UpsertOrderResponse{}, ErrWindowClosed
	}

	saved, created, err := s.repo.UpsertOrderSlot(ctx, domain.OrderSlot{
		CustomerID: req.CustomerID,
		Date:       date,
		Shift:      shift,
		Quantity:   req.Quantity,
		TotalCents: toCents(req.TotalAmount),
	})
	if err != nil {
		return domain.UpsertOrderResponse{}, err
	}

	if err := s.cache.Invalidate(ctx, req.CustomerID); err != nil {
		s.logger.Warnw("history cache invalidation failed", "customer_id", req.CustomerID, "error", err)
	}

	status := "updated"
	if created {
		status = "created"
	}
	s.logger.Infow("order slot upserted",
		"customer_id", saved.CustomerID, "date", saved.Date, "shift", saved.Shift,
		"quantity", saved.Quantity, "status", status)

	return domain.UpsertOrderResponse{Order: toSlotView(*saved), Status: status}, nil
}

// GetOrder returns the existing slot for the tuple, or ErrSlotNotFound.
// Absence is the caller's signal that a fresh order may be placed.
func (s *Service) GetOrder(ctx context.Context, customerID, date string, shift domain.Shift) (domain.OrderSlotView, error) {
	if err := s.policy.Validate(shift); err != nil {
		return domain.OrderSlotView{}, err
	}
	normalized, err := normalizeDate(date)
	if err != nil {
		return domain.OrderSlotView{}, err
	}

	slot, err := s.repo.GetOrderSlot(ctx, customerID, normalized, shift)
	if err != nil {
		return domain.OrderSlotView{}, err
	}
	return toSlotView(*slot), nil
}

func (s *Service) GetOrderHistory(ctx context.Context, customerID, fromDate, toDate string) (domain.OrderHistoryResponse, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.OrderHistoryResponse{}, store.ErrCustomerNotFound
	}

	from, err := normalizeDate(fromDate)
	if err != nil {
		return domain.OrderHistoryResponse{}, err
	}
	to, err := normalizeDate(toDate)
	if err != nil {
		return domain.OrderHistoryResponse{}, err
	}
	if from > to {
		return domain.OrderHistoryResponse{}, ErrInvalidDate
	}

	if cached, hit, err := s.cache.Get(ctx, customerID, from, to); err != nil {
		s.logger.Warnw("history cache read failed", "customer_id", customerID, "error", err)
	} else if hit {
		return *cached, nil
	}

	slots, err := s.repo.ListOrderSlots(ctx, customerID, from, to)
	if err != nil {
		return domain.OrderHistoryResponse{}, err
	}

	view := history.Aggregate(slots)

	if err := s.cache.Set(ctx, customerID, from, to, &view, s.historyTTL); err != nil {
		s.logger.Warnw("history cache write failed", "customer_id", customerID, "error", err)
	}

	return view, nil
}

// RegisterCustomer opens a balance record with the given opening due. A
// customer must be registered before any collection can target it. When the
// directory client is configured the id is verified against it first.
func (s *Service) RegisterCustomer(ctx context.Context, req domain.RegisterCustomerRequest) (domain.Customer, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Customer{}, err
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Name = strings.TrimSpace(req.Name)
	if req.CustomerID == "" || !validAmount(req.OpeningDue) {
		return domain.Customer{}, store.ErrInvalidAmount
	}

	if s.directory != nil {
		name, found, err := s.directory.Lookup(ctx, req.CustomerID)
		if err != nil {
			return domain.Customer{}, fmt.Errorf("verify customer against directory: %w", err)
		}
		if !found {
			return domain.Customer{}, store.ErrCustomerNotFound
		}
		if req.Name == "" {
			req.Name = name
		}
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:       req.CustomerID,
		Name:     req.Name,
		DueCents: toCents(req.OpeningDue),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.Infow("customer registered", "customer_id", created.ID, "opening_due_cents", created.DueCents)
	return *created, nil
}

func (s *Service) GetAmountDue(ctx context.Context, customerID string) (domain.BalanceResponse, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.BalanceResponse{}, err
	}

	due, err := s.repo.GetBalance(ctx, customerID)
	if err != nil {
		return domain.BalanceResponse{}, err
	}
	return domain.BalanceResponse{CustomerID: customerID, AmountDue: float64(due) / 100}, nil
}

// CollectCash applies a single collection against the customer's due. The
// read-validate-write-append sequence is atomic in the repository; a failed
// collection is surfaced as-is and never retried, so a typo cannot turn into
// a double application.
func (s *Service) CollectCash(ctx context.Context, customerID string, amount float64) (domain.CollectResponse, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.CollectResponse{}, err
	}

	if !validAmount(amount) {
		return domain.CollectResponse{}, store.ErrInvalidAmount
	}

	collectedBy := ""
	if actor, ok := ActorFromContext(ctx); ok {
		collectedBy = actor.Username
	}

	txn, err := s.repo.ApplyCollection(ctx, customerID, toCents(amount), collectedBy)
	if err != nil {
		return domain.CollectResponse{}, err
	}

	s.logger.Infow("cash collected",
		"customer_id", customerID, "amount_cents", txn.AmountCents,
		"resulting_due_cents", txn.ResultingDueCents, "collected_by", collectedBy)

	return domain.CollectResponse{
		TransactionID:    txn.ID,
		UpdatedAmountDue: float64(txn.ResultingDueCents) / 100,
	}, nil
}

func (s *Service) ListCollections(ctx context.Context, customerID string, limit int) (domain.CollectionListResponse, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.CollectionListResponse{}, err
	}

	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return domain.CollectionListResponse{}, err
	}

	txns, err := s.repo.ListCollections(ctx, customerID, limit)
	if err != nil {
		return domain.CollectionListResponse{}, err
	}

	views := make([]domain.CollectionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, domain.CollectionView{
			ID:           txn.ID,
			Amount:       float64(txn.AmountCents) / 100,
			ResultingDue: float64(txn.ResultingDueCents) / 100,
			CollectedBy:  txn.CollectedBy,
			CreatedAt:    txn.CreatedAt,
		})
	}
	return domain.CollectionListResponse{Collections: views}, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

func normalizeDate(raw string) (string, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidDate
	}
	return parsed.Format(dateLayout), nil
}

// validAmount rejects negative, NaN and infinite values in one comparison.
func validAmount(amount float64) bool {
	return amount >= 0 && !math.IsInf(amount, 1)
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func toSlotView(slot domain.OrderSlot) domain.OrderSlotView {
	return domain.OrderSlotView{
		CustomerID:  slot.CustomerID,
		Date:        slot.Date,
		Shift:       slot.Shift,
		Quantity:    slot.Quantity,
		TotalAmount: float64(slot.TotalCents) / 100,
		CreatedAt:   slot.CreatedAt,
		UpdatedAt:   slot.UpdatedAt,
	}
}
