package cachutil

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// LoadFunc loads the value for key. A zero ttl stores the value with
// the cache's default ttl, a negative ttl does not store it.
// Errors are never cached.
type LoadFunc[V any] func(ctx context.Context, key string) (value V, ttl time.Duration, err error)

// SuppressedLoader is a read-through ttl cache that suppresses
// duplicate in-flight loads for the same key.
type SuppressedLoader[V any] struct {
	cache    *ttlcache.Cache[string, V]
	load     LoadFunc[V]
	group    singleflight.Group
	disabled bool
}

// NewSuppressedLoader returns a loader caching values for ttl, holding
// at most capacity items (0 means unbounded).
// A ttl <= 0 disables caching, only concurrent loads are suppressed.
func NewSuppressedLoader[V any](ttl time.Duration, capacity uint64, load LoadFunc[V]) *SuppressedLoader[V] {
	opts := []ttlcache.Option[string, V]{
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithDisableTouchOnHit[string, V](),
	}
	if capacity != 0 {
		opts = append(opts, ttlcache.WithCapacity[string, V](capacity))
	}
	return &SuppressedLoader[V]{
		cache:    ttlcache.New[string, V](opts...),
		load:     load,
		disabled: ttl <= 0,
	}
}

// Get returns the cached value for key or loads it.
// Only one load for a given key is in-flight at a time. The load is not
// canceled when ctx is, so other callers waiting on it still get the value.
func (l *SuppressedLoader[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	if !l.disabled {
		if item := l.cache.Get(key); item != nil {
			return item.Value(), nil
		}
	}
	ch := l.group.DoChan(key, func() (any, error) {
		v, ttl, err := l.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		if l.disabled || ttl < 0 {
			return v, nil
		}
		if ttl == 0 {
			ttl = ttlcache.DefaultTTL
		}
		l.cache.Set(key, v, ttl)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Invalidate drops the cached value for key.
func (l *SuppressedLoader[V]) Invalidate(key string) { l.cache.Delete(key) }

// Len returns the number of cached items, expired ones included
// until they are evicted.
func (l *SuppressedLoader[V]) Len() int { return l.cache.Len() }

// Start runs the expired item cleanup until Stop is called.
// It blocks and is usually run in its own goroutine.
func (l *SuppressedLoader[V]) Start() { l.cache.Start() }

// Stop stops the cleanup started by Start.
func (l *SuppressedLoader[V]) Stop() { l.cache.Stop() }
