package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	// ScanLockKey is the Redis key guarding a running scan
	ScanLockKey = "settler:scan:lock"

	// DefaultScanLockTTL is used when a non-positive ttl is given; Redis would otherwise keep the key forever
	DefaultScanLockTTL = 5 * time.Minute
)

// ScanLock keeps two triggers from scanning at the same time.
// Settlement is idempotent without it; the lock only avoids wasted work.
type ScanLock interface {
	// TryAcquire returns a release func when the lock was taken, or acquired=false if a scan is already running
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisScanLock is a ScanLock shared by every settler instance using the same Redis
type RedisScanLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// ConnectRedis opens a client and checks the server answers
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return rdb, nil
}

// NewRedisScanLock creates a lock whose key expires after ttl if the holder dies
func NewRedisScanLock(client *redis.Client, ttl time.Duration) *RedisScanLock {
	if ttl <= 0 {
		log.WithField("ttl", ttl).Warnf("Non-positive scan lock ttl, using %s", DefaultScanLockTTL)
		ttl = DefaultScanLockTTL
	}
	return &RedisScanLock{
		client: client,
		key:    ScanLockKey,
		ttl:    ttl,
	}
}

// TryAcquire sets the lock key with SET NX PX
func (l *RedisScanLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// The scan context may already be cancelled; release must still go through
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil {
			log.WithError(err).Warn("Failed to release scan lock")
		}
	}
	return release, true, nil
}

// LocalScanLock is an in-process ScanLock used when Redis is not configured
type LocalScanLock struct {
	mu sync.Mutex
}

// NewLocalScanLock creates an in-process scan lock
func NewLocalScanLock() *LocalScanLock {
	return &LocalScanLock{}
}

// TryAcquire never blocks and never fails
func (l *LocalScanLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
