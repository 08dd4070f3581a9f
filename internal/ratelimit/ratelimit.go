// Package ratelimit provides a keyed sliding window limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds limiter configuration.
type Config struct {
	MaxPerWindow int           // Maximum hits per key per window (default: 10)
	Window       time.Duration // Window length (default: 1 minute)
	Enabled      bool
}

// DefaultConfig returns 10 hits per minute per key.
func DefaultConfig() Config {
	return Config{
		MaxPerWindow: 10,
		Window:       time.Minute,
		Enabled:      true,
	}
}

// Limiter is a sliding window limiter keyed by an arbitrary string.
// State is held in process memory.
type Limiter struct {
	mu           sync.Mutex
	maxPerWindow int
	window       time.Duration
	enabled      bool
	hits         map[string][]time.Time
	dropped      int64
	now          func() time.Time
}

// New creates a Limiter with the given configuration.
func New(config Config) *Limiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &Limiter{
		maxPerWindow: config.MaxPerWindow,
		window:       config.Window,
		enabled:      config.Enabled,
		hits:         make(map[string][]time.Time),
		now:          time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Allow records a hit for key and reports whether it fits in the window.
// A rejected hit is not recorded.
func (l *Limiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	timestamps := l.prune(key, now.Add(-l.window))

	if len(timestamps) >= l.maxPerWindow {
		l.dropped++
		return false
	}

	l.hits[key] = append(timestamps, now)
	return true
}

// Release refunds the most recent hit for key.
func (l *Limiter) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.hits[key]
	if len(timestamps) == 0 {
		return
	}
	if len(timestamps) == 1 {
		delete(l.hits, key)
		return
	}
	l.hits[key] = timestamps[:len(timestamps)-1]
}

// Remaining returns how many more hits key may make in the current window.
func (l *Limiter) Remaining(key string) int {
	if !l.enabled {
		return l.maxPerWindow
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.maxPerWindow - len(l.prune(key, l.now().Add(-l.window)))
}

// Dropped returns the number of rejected hits.
func (l *Limiter) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Reset clears all state.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hits = make(map[string][]time.Time)
	l.dropped = 0
}

// prune drops timestamps older than cutoff. Must be called with mu held.
func (l *Limiter) prune(key string, cutoff time.Time) []time.Time {
	timestamps := l.hits[key]

	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}

	if idx == len(timestamps) {
		delete(l.hits, key)
		return nil
	}
	if idx > 0 {
		timestamps = append(timestamps[:0], timestamps[idx:]...)
		l.hits[key] = timestamps
	}
	return timestamps
}
