package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeAdvancesTimeAndFiresDueTimers(t *testing.T) {
	f := NewFake(1000)
	require.Equal(t, int64(1000), f.NowMillis())

	var fired []string
	f.SetTimer(100, func() { fired = append(fired, "late") })
	f.SetTimer(50, func() { fired = append(fired, "early") })

	f.Advance(49)
	require.Empty(t, fired)

	f.Advance(1)
	require.Equal(t, []string{"early"}, fired)

	f.Advance(50)
	require.Equal(t, []string{"early", "late"}, fired)
	require.Equal(t, 0, f.Pending())
}

func TestFakeClearedTimerNeverFires(t *testing.T) {
	f := NewFake(0)
	fired := false
	handle := f.SetTimer(10, func() { fired = true })
	f.ClearTimer(handle)

	f.Advance(100)
	require.False(t, fired)
}

func TestFakeTimerArmedDuringCallbackWaitsForNextAdvance(t *testing.T) {
	f := NewFake(0)
	var count int
	f.SetTimer(10, func() {
		count++
		f.SetTimer(10, func() { count++ })
	})

	f.Advance(100)
	require.Equal(t, 1, count, "a timer armed inside a callback fires on a later Advance only")

	f.Advance(100)
	require.Equal(t, 2, count)
}
