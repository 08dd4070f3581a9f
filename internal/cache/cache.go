// Package cache provides an in-process tagged cache used for computed read models.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the entry capacity used when New is given a non-positive size.
const DefaultSize = 1024

// Tags of the cached read models.
const (
	TagProjects = "projects"
	TagTasks    = "tasks"
)

type entry struct {
	value     any
	expiresAt time.Time
	tags      []string
}

// Tagged is an LRU cache whose entries carry tags. Flushing a tag drops every
// entry carrying it. Concurrent Remember calls for one key share a single producer run.
type Tagged struct {
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	tagged  map[string]map[string]struct{}
	epoch   uint64
	group   singleflight.Group
	now     func() time.Time
}

// New creates a Tagged cache holding at most size entries.
func New(size int) (*Tagged, error) {
	if size <= 0 {
		size = DefaultSize
	}

	c := &Tagged{
		tagged: make(map[string]map[string]struct{}),
		now:    time.Now,
	}

	entries, err := lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// WithClock replaces the time source. Intended for tests.
func (c *Tagged) WithClock(now func() time.Time) *Tagged {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the live value stored under key.
func (c *Tagged) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key with the given tags. A non-positive ttl never expires.
func (c *Tagged) Put(tags []string, key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(tags, key, value, ttl)
}

func (c *Tagged) putLocked(tags []string, key string, value any, ttl time.Duration) {
	e := entry{value: value, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	// Replacing a key must drop it from tags it no longer carries.
	c.entries.Remove(key)
	c.entries.Add(key, e)
	for _, tag := range e.tags {
		keys, ok := c.tagged[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagged[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Remember returns the cached value for key, or runs producer and caches its result.
// Producer errors are returned and nothing is cached. A Flush that happens while
// producer runs prevents its result from being stored.
func (c *Tagged) Remember(ctx context.Context, tags []string, key string, ttl time.Duration, producer func(ctx context.Context) (any, error)) (any, error) {
	if value, ok := c.Get(key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return value, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	value, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		epoch := c.epoch
		c.mu.Unlock()

		// Callers share this run, so one of them going away must not cancel it.
		value, err := producer(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.epoch == epoch {
			c.putLocked(tags, key, value, ttl)
		}
		c.mu.Unlock()
		return value, nil
	})
	return value, err
}

// Flush drops every entry carrying any of tags.
func (c *Tagged) Flush(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, tag := range tags {
		for key := range c.tagged[tag] {
			c.entries.Remove(key)
		}
		delete(c.tagged, tag)
	}
}

// Forget drops a single key.
func (c *Tagged) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Tagged) Len() int {
	return c.entries.Len()
}

// onEvict keeps the tag index in step with the LRU. It runs with mu held.
func (c *Tagged) onEvict(key string, e entry) {
	for _, tag := range e.tags {
		keys := c.tagged[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.tagged, tag)
		}
	}
}

// Remember is the typed form of Tagged.Remember.
func Remember[T any](ctx context.Context, c *Tagged, tags []string, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	value, err := c.Remember(ctx, tags, key, ttl, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: value under %q has type %T", key, value)
	}
	return typed, nil
}
