package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireOrderPaymentLock(ctx context.Context, orderID string, ttl time.Duration) (string, error)
	ReleaseOrderPaymentLock(ctx context.Context, orderID, token string) error
}

// CacheStoreInterface defines the interface for cached responses.
type CacheStoreInterface interface {
	GetGatewayListing(ctx context.Context) (*GatewayListing, error)
	SetGatewayListing(ctx context.Context, listing *GatewayListing) error
	InvalidateGatewayListing(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
