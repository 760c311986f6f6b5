package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireOrderPaymentLock attempts to take the payment lock of an order.
// It returns the lock token, or an empty token if the lock is already held.
func (s *LockStore) AcquireOrderPaymentLock(ctx context.Context, orderID string, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, orderPaymentLockKey(orderID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleaseOrderPaymentLock releases the payment lock of an order if token still owns it.
func (s *LockStore) ReleaseOrderPaymentLock(ctx context.Context, orderID, token string) error {
	deleted, err := releaseScript.Run(ctx, s.client, []string{orderPaymentLockKey(orderID)}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func orderPaymentLockKey(orderID string) string {
	return fmt.Sprintf("lock:order:%s:payment", orderID)
}
