package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := New(5)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(), "attempt %d should be admitted", i)
	}
}

func TestLimiter_DeniesBeyondRate(t *testing.T) {
	l := New(3)

	// Drain the burst, then the next immediate check must fail.
	denied := false
	for i := 0; i < 10; i++ {
		if !l.Allow() {
			denied = true
			break
		}
	}
	assert.True(t, denied, "expected a denial within one refill window")
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := New(2)

	// Drain the bucket.
	for i := 0; i < 10 && l.Allow(); i++ {
	}
	require.False(t, l.Allow())

	// One refill window with no checks restores at least one token.
	time.Sleep(1100 * time.Millisecond)
	assert.True(t, l.Allow())
}
