package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// releaseLease deletes the lease key only when the token still matches, so an
// expired lease taken over by another run is never released by the first one.
var releaseLease = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lease serializes sync runs per property and month. The ledger append loop
// has no write protection of its own; overlapping runs would duplicate detail
// rows, so a run must hold the lease for its whole duration.
type Lease struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLease constructs a lease manager. The TTL bounds how long a crashed run
// can block its property/month.
func NewLease(client *redis.Client, ttl time.Duration) *Lease {
	return &Lease{client: client, ttl: ttl}
}

// Acquire takes the lease for one property/month. It returns a release
// function on success and a precondition error when another run holds it.
func (l *Lease) Acquire(ctx context.Context, propertyID int64, year, month int) (func(), error) {
	key := fmt.Sprintf("ledger:sync:%d:%d-%02d", propertyID, year, month)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger: acquire lease: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("ledger: sync already running for property %d %d-%02d: %w",
			propertyID, year, month, httpx.ErrPrecondition)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseLease.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
