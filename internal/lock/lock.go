// Package lock serializes read-check-write sequences across booking requests.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrEmptyKey    = errors.New("lock key is empty")
	ErrInvalidTTL  = errors.New("lock ttl must be positive")
)

const (
	keyMember = "tourdesk:lock:member:%s"
	keySpace  = "tourdesk:lock:space:%s:%s"
	keyTour   = "tourdesk:lock:tour:%s"
	keyJob    = "tourdesk:lock:job:%s"
)

// Locker grants short-lived exclusive leases on string keys.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

func MemberKey(memberID string) string {
	return fmt.Sprintf(keyMember, strings.TrimSpace(memberID))
}

func SpaceKey(spaceID, date string) string {
	return fmt.Sprintf(keySpace, strings.TrimSpace(spaceID), strings.TrimSpace(date))
}

func TourKey(tourID string) string {
	return fmt.Sprintf(keyTour, strings.TrimSpace(tourID))
}

// JobKey names the lease a scheduler instance holds while running a job.
func JobKey(job string) string {
	return fmt.Sprintf(keyJob, strings.TrimSpace(job))
}

type Options struct {
	TTL      time.Duration
	Wait     time.Duration
	Interval time.Duration
}

func DefaultOptions() Options {
	return Options{
		TTL:      10 * time.Second,
		Wait:     3 * time.Second,
		Interval: 50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = def.TTL
	}
	if o.Wait < 0 {
		o.Wait = 0
	}
	if o.Interval <= 0 {
		o.Interval = def.Interval
	}
	return o
}

// WithLock runs fn while holding every key in keys. Keys are deduplicated and
// acquired in sorted order, then released in reverse.
func WithLock(ctx context.Context, l Locker, opts Options, keys []string, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults()
	ordered := slices.Compact(slices.Sorted(slices.Values(keys)))

	type held struct {
		key   string
		token string
	}
	acquired := make([]held, 0, len(ordered))
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			// Release must not inherit cancellation from the request context.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			_ = l.Release(releaseCtx, acquired[i].key, acquired[i].token)
			cancel()
		}
	}()

	for _, key := range ordered {
		token, err := acquire(ctx, l, key, opts)
		if err != nil {
			return err
		}
		acquired = append(acquired, held{key: key, token: token})
	}

	return fn(ctx)
}

func acquire(ctx context.Context, l Locker, key string, opts Options) (string, error) {
	deadline := time.Now().Add(opts.Wait)
	for {
		token, ok, err := l.TryLock(ctx, key, opts.TTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if !time.Now().Before(deadline) {
			return "", fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
