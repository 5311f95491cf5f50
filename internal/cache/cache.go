// Package cache caches aggregated order-history views. The cache is a pure
// read accelerator: entries carry a short TTL and are invalidated whenever a
// customer's orders change, so the store remains the source of truth.
package cache

import (
	"context"
	"time"

	"fieldorder/backend/internal/domain"
)

type HistoryCache interface {
	Get(ctx context.Context, customerID, fromDate, toDate string) (*domain.OrderHistoryResponse, bool, error)
	Set(ctx context.Context, customerID, fromDate, toDate string, value *domain.OrderHistoryResponse, ttl time.Duration) error
	Invalidate(ctx context.Context, customerID string) error
}

// NoopHistoryCache is used when redis is not configured.
type NoopHistoryCache struct{}

func (NoopHistoryCache) Get(context.Context, string, string, string) (*domain.OrderHistoryResponse, bool, error) {
	return nil, false, nil
}

func (NoopHistoryCache) Set(context.Context, string, string, string, *domain.OrderHistoryResponse, time.Duration) error {
	return nil
}

func (NoopHistoryCache) Invalidate(context.Context, string) error { return nil }
