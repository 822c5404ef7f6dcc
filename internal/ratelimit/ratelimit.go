// Package ratelimit provides in-memory sliding window rate limiting for
// the public storefront endpoints.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by an arbitrary string.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	window   time.Duration
	max      int
}

type counter struct {
	count     int
	expiresAt time.Time
}

// NewLimiter creates a limiter allowing max requests per key per window.
func NewLimiter(window time.Duration, max int) *Limiter {
	l := &Limiter{
		counters: make(map[string]*counter),
		window:   window,
		max:      max,
	}
	go l.cleanup()
	return l
}

// Allow reports whether a request for the given key fits the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[key]
	if !ok || now.After(c.expiresAt) {
		l.counters[key] = &counter{
			count:     1,
			expiresAt: now.Add(l.window),
		}
		return true
	}
	if c.count >= l.max {
		return false
	}
	c.count++
	return true
}

// Remaining returns how many requests the key has left in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || time.Now().After(c.expiresAt) {
		return l.max
	}
	remaining := l.max - c.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, c := range l.counters {
			if now.After(c.expiresAt) {
				delete(l.counters, key)
			}
		}
		l.mu.Unlock()
	}
}

// StorefrontLimiter bundles the limiters for the unauthenticated shop
// operations: checkout is limited per IP and per customer email, review
// submission per IP only.
type StorefrontLimiter struct {
	ipCheckout    *Limiter
	emailCheckout *Limiter
	ipReview      *Limiter
}

// NewStorefrontLimiter creates a limiter with the default shop limits.
func NewStorefrontLimiter() *StorefrontLimiter {
	return NewCustomStorefrontLimiter(30, 10, 10)
}

// NewCustomStorefrontLimiter creates a limiter with custom hourly limits.
func NewCustomStorefrontLimiter(ipCheckoutLimit, emailCheckoutLimit, ipReviewLimit int) *StorefrontLimiter {
	return &StorefrontLimiter{
		ipCheckout:    NewLimiter(time.Hour, ipCheckoutLimit),
		emailCheckout: NewLimiter(time.Hour, emailCheckoutLimit),
		ipReview:      NewLimiter(time.Hour, ipReviewLimit),
	}
}

// CheckCheckout verifies that an order can be placed from the given IP and
// email. Email is skipped when the customer left none.
func (s *StorefrontLimiter) CheckCheckout(ip, email string) error {
	if !s.ipCheckout.Allow(ip) {
		return fmt.Errorf("too many orders from this address, please try again later")
	}
	if email != "" && !s.emailCheckout.Allow(email) {
		return fmt.Errorf("too many orders for this email, please try again later")
	}
	return nil
}

// CheckReview verifies that a review can be submitted from the given IP.
func (s *StorefrontLimiter) CheckReview(ip string) error {
	if !s.ipReview.Allow(ip) {
		return fmt.Errorf("too many reviews from this address, please try again later")
	}
	return nil
}
