package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayRanges(t *testing.T) {
	cases := []struct {
		category Category
		min, max time.Duration
	}{
		{Scroll, time.Second, 3 * time.Second},
		{TypingChar, 50 * time.Millisecond, 150 * time.Millisecond},
		{PreSearch, 2 * time.Second, 5 * time.Second},
		{General, 2 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		for i := 0; i < 50; i++ {
			d := Delay(tc.category)
			require.GreaterOrEqual(t, d, tc.min, string(tc.category))
			require.LessOrEqual(t, d, tc.max, string(tc.category))
		}
	}
}

func TestCooldownRangeDuration(t *testing.T) {
	r := CooldownRange{Min: 30, Max: 120}
	for i := 0; i < 50; i++ {
		d := r.Duration()
		require.GreaterOrEqual(t, d, 30*time.Second)
		require.LessOrEqual(t, d, 120*time.Second)
	}

	// Degenerate range collapses to the minimum.
	fixed := CooldownRange{Min: 10, Max: 10}
	require.Equal(t, 10*time.Second, fixed.Duration())
}
