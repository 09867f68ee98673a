// Package ratelimit applies fixed-window request limits per key. Windows are
// aligned to multiples of the policy window since the Unix epoch, so every
// backend and every server instance agrees on where a window starts.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is returned by Check when a key has used up its window.
var ErrLimited = errors.New("rate limit exceeded")

type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time until the current window closes.
	RetryAfter time.Duration
}

type Limiter interface {
	// Allow counts one request for key and reports whether it fits in p.
	Allow(ctx context.Context, key string, p Policy) (Decision, error)
}

// LimitedError carries the wait time for a rejected request.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrLimited, e.RetryAfter.Round(time.Second))
}

func (e *LimitedError) Unwrap() error {
	return ErrLimited
}

// Check calls Allow and turns a rejection into a *LimitedError.
func Check(ctx context.Context, l Limiter, key string, p Policy) error {
	d, err := l.Allow(ctx, key, p)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &LimitedError{RetryAfter: d.RetryAfter}
	}
	return nil
}

// windowAt returns the index of the window containing now and the time left in it.
func windowAt(now time.Time, window time.Duration) (int64, time.Duration) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	at := now.UnixMilli()
	idx := at / ms
	left := time.Duration((idx+1)*ms-at) * time.Millisecond
	return idx, left
}

func decide(count int64, p Policy, left time.Duration) Decision {
	if count > int64(p.Limit) {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: left}
	}
	return Decision{Allowed: true, Remaining: p.Limit - int(count), RetryAfter: left}
}

type counter struct {
	window int64
	count  int64
	expiry time.Time
}

// MemoryLimiter keeps counters in process memory. It suits a single server
// instance.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	calls    int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: map[string]*counter{}, now: time.Now}
}

// WithClock replaces the time source.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

// sweepEvery is how many Allow calls pass between removals of expired counters.
const sweepEvery = 1024

func (m *MemoryLimiter) Allow(_ context.Context, key string, p Policy) (Decision, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid rate limit policy %+v", p)
	}
	now := m.now()
	idx, left := windowAt(now, p.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	c, ok := m.counters[key]
	if !ok || c.window != idx {
		c = &counter{window: idx}
		m.counters[key] = c
	}
	c.count++
	c.expiry = now.Add(left)
	return decide(c.count, p, left), nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, c := range m.counters {
		if !now.Before(c.expiry) {
			delete(m.counters, k)
		}
	}
}

// Len returns the number of live counters.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
