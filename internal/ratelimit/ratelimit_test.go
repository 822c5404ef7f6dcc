package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	limiter := NewLimiter(time.Second, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("k"))
	}
	assert.False(t, limiter.Allow("k"))

	time.Sleep(1100 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))
}

func TestLimiterRemaining(t *testing.T) {
	limiter := NewLimiter(time.Second, 5)

	assert.Equal(t, 5, limiter.Remaining("k"))
	limiter.Allow("k")
	limiter.Allow("k")
	assert.Equal(t, 3, limiter.Remaining("k"))
}

func TestCheckCheckoutPerIP(t *testing.T) {
	limiter := NewCustomStorefrontLimiter(2, 10, 10)

	require.NoError(t, limiter.CheckCheckout("192.168.1.1", "a@example.com"))
	require.NoError(t, limiter.CheckCheckout("192.168.1.1", "b@example.com"))
	assert.Error(t, limiter.CheckCheckout("192.168.1.1", "c@example.com"))

	assert.NoError(t, limiter.CheckCheckout("192.168.1.2", "d@example.com"))
}

func TestCheckCheckoutPerEmail(t *testing.T) {
	limiter := NewCustomStorefrontLimiter(10, 2, 10)

	require.NoError(t, limiter.CheckCheckout("192.168.1.1", "a@example.com"))
	require.NoError(t, limiter.CheckCheckout("192.168.1.2", "a@example.com"))
	assert.Error(t, limiter.CheckCheckout("192.168.1.3", "a@example.com"))

	// no email skips the email bucket
	assert.NoError(t, limiter.CheckCheckout("192.168.1.4", ""))
}

func TestCheckReview(t *testing.T) {
	limiter := NewCustomStorefrontLimiter(10, 10, 2)

	require.NoError(t, limiter.CheckReview("192.168.1.1"))
	require.NoError(t, limiter.CheckReview("192.168.1.1"))
	assert.Error(t, limiter.CheckReview("192.168.1.1"))
}
