// Package httpapi exposes the ordering and collection service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fieldorder/backend/internal/domain"
	"fieldorder/backend/internal/service"
	"fieldorder/backend/internal/shiftwindow"
	"fieldorder/backend/internal/store"
)

type API struct {
	service      *service.Service
	auth         *AuthManager
	logger       *zap.SugaredLogger
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, logger *zap.SugaredLogger) *API {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &API{
		service:      svc,
		auth:         auth,
		logger:       logger,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(a.logRequests)

	r.Get("/healthz", a.handleHealth)
	r.Post("/api/v1/auth/login", a.handleLogin)

	// The window check is advisory and unauthenticated; authorization for
	// the resulting order action happens on the mutating endpoint.
	r.Get("/api/v1/shifts/allowed", a.handleShiftAllowed)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("customer", "admin"))

		r.Post("/api/v1/orders", a.handleUpsertOrder)
		r.Get("/api/v1/orders/history", a.handleOrderHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("admin"))

		r.Post("/api/v1/customers", a.handleRegisterCustomer)
		r.Get("/api/v1/customers/{customerID}/balance", a.handleBalance)
		r.Post("/api/v1/customers/{customerID}/collect", a.handleCollect)
		r.Get("/api/v1/customers/{customerID}/collections", a.handleCollections)

		r.Get("/api/v1/users/customers", a.handleListCustomerLogins)
		r.Post("/api/v1/users/customers", a.handleCreateCustomerLogin)
	})

	return r
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Infow("http request",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleShiftAllowed(w http.ResponseWriter, r *http.Request) {
	shift := domain.Shift(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("shift"))))

	allowed, err := a.service.CheckShiftAllowed(shift)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, domain.ShiftAllowedResponse{Shift: shift, Allowed: allowed})
}

func (a *API) handleUpsertOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// A customer token implies its own customer id when the body omits it.
	if actor, ok := service.ActorFromContext(r.Context()); ok && req.CustomerID == "" {
		req.CustomerID = actor.CustomerID
	}

	resp, err := a.service.UpsertOrder(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	status := http.StatusOK
	if resp.Status == "created" {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (a *API) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == "customer" {
		// Customers can only read their own history regardless of the query.
		customerID = actor.CustomerID
	}

	view, err := a.service.GetOrderHistory(r.Context(), customerID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customer, err := a.service.RegisterCustomer(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
}

func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	balance, err := a.service.GetAmountDue(r.Context(), customerID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

func (a *API) handleCollect(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req domain.CollectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CollectCash(r.Context(), customerID, req.Amount)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCollections(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	resp, err := a.service.ListCollections(r.Context(), customerID, limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCreateCustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerLoginCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	account, err := a.auth.CreateCustomerLogin(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": account})
}

func (a *API) handleListCustomerLogins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListCustomerLogins()})
}

// statusForError translates domain errors into HTTP statuses. Anything
// unrecognized is a storage/internal failure and must surface as a 500, never
// as silent success.
func statusForError(err error) int {
	var exceeds *store.ExceedsDueError
	switch {
	case errors.As(err, &exceeds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrCustomerNotFound), errors.Is(err, store.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrCustomerExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrWindowClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shiftwindow.ErrInvalidShift),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, store.ErrInvalidOrder),
		errors.Is(err, store.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func parsePositiveLimit(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
