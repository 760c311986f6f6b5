package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles response caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GatewayListingTTL bounds how stale the gateway listing can be after a
// configuration change.
const GatewayListingTTL = 30 * time.Second

const gatewayListingKey = "cache:gateways"

// GatewayListing is the cached answer of the gateway discovery endpoint.
type GatewayListing struct {
	Available  []string `json:"available"`
	Configured []string `json:"configured"`
}

// GetGatewayListing retrieves the gateway listing. Returns nil on a cache miss.
func (s *CacheStore) GetGatewayListing(ctx context.Context) (*GatewayListing, error) {
	data, err := s.client.Get(ctx, gatewayListingKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var listing GatewayListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// SetGatewayListing stores the gateway listing.
func (s *CacheStore) SetGatewayListing(ctx context.Context, listing *GatewayListing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, gatewayListingKey, data, GatewayListingTTL).Err()
}

// InvalidateGatewayListing removes the gateway listing from cache.
func (s *CacheStore) InvalidateGatewayListing(ctx context.Context) error {
	return s.client.Del(ctx, gatewayListingKey).Err()
}
