package directory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAllocGrowsTailWhenNoGapFits(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	require.Equal(t, int64(0), d.Start(a))
	b := d.Alloc(10, "b")
	require.Equal(t, int64(10), d.Start(b))
	require.Equal(t, int64(20), d.End(b))
}

func TestAllocReusesEarlierFreedGap(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	d.Alloc(10, "b")
	d.Free(a)

	c := d.Alloc(5, "c")
	require.Equal(t, int64(0), d.Start(c))
}

func TestFreeReportsWhetherItShrankTheTail(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	b := d.Alloc(10, "b")

	require.False(t, d.Free(a))
	c := d.Alloc(10, "c")
	require.Equal(t, int64(0), d.Start(c))

	require.True(t, d.Free(b))
	_, ok := d.LastBlock()
	require.True(t, ok)
}

func TestBlockChainWalksInPositionOrder(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	b := d.Alloc(10, "b")
	c := d.Alloc(10, "c")

	next, ok := d.Next(a)
	require.True(t, ok)
	require.Equal(t, b, next)

	next, ok = d.Next(b)
	require.True(t, ok)
	require.Equal(t, c, next)

	_, ok = d.Next(c)
	require.False(t, ok)

	prev, ok := d.Prev(c)
	require.True(t, ok)
	require.Equal(t, b, prev)
}

func TestAllocAfterExtendsLastBlockOfItsRange(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	b := d.AllocAfter(a, 10, "b")

	require.Equal(t, int64(10), d.Start(b))
	require.Equal(t, int64(20), d.End(b))

	got := d.AllocatedRanges()
	want := []Range{{Start: 0, End: 20}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllocatedRanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestAllocLeadingPlacesBlockAtDomainStart(t *testing.T) {
	d := New[string](4)
	existing := d.Alloc(10, "x")
	d.Free(existing)

	leading := d.AllocLeading(4, "lead")
	require.Equal(t, int64(4), d.Start(leading))
	require.Equal(t, int64(8), d.End(leading))
}

func TestFreeRangesSummaryReportsGapsAndMaxGap(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	d.Alloc(10, "b")
	c := d.Alloc(30, "c")
	d.Free(a)

	maxGap, gaps := d.FreeRangesSummary()
	require.Equal(t, int64(10), maxGap)
	require.Len(t, gaps, 1)
	require.Equal(t, int64(0), gaps[0].Location)
	require.Equal(t, int64(10), gaps[0].Space)
	require.Equal(t, NoBlock, gaps[0].PrevBlock)

	_ = c
}

func TestFreeSplitsAnInteriorRangeIntoTwo(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	b := d.AllocAfter(a, 10, "b")
	d.AllocAfter(b, 10, "c")

	d.Free(b)

	got := d.AllocatedRanges()
	want := []Range{{Start: 0, End: 10}, {Start: 20, End: 30}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllocatedRanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedBuildsRangesFromLoadOrder(t *testing.T) {
	d := New[string](0)
	d.Seed(0, 10, "a")
	d.Seed(10, 20, "b") // contiguous, should extend the same range
	d.Seed(30, 40, "c") // gap, should open a new range

	got := d.AllocatedRanges()
	want := []Range{{Start: 0, End: 20}, {Start: 30, End: 40}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllocatedRanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestMidFileAllocKeepsBlockChainConsistent(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "a")
	b := d.Alloc(10, "b")
	c := d.Alloc(10, "c")
	d.Free(b)

	// First-fit places the new block inside the hole, so the global chain
	// must now read a -> mid -> c in both directions.
	mid := d.Alloc(5, "mid")
	require.Equal(t, int64(10), d.Start(mid))

	next, ok := d.Next(a)
	require.True(t, ok)
	require.Equal(t, mid, next)

	next, ok = d.Next(mid)
	require.True(t, ok)
	require.Equal(t, c, next)

	prev, ok := d.Prev(c)
	require.True(t, ok)
	require.Equal(t, mid, prev)

	// Filling the remainder exactly merges the two ranges and the chain
	// must still walk a -> mid -> rest -> c.
	rest := d.Alloc(5, "rest")
	require.Equal(t, int64(15), d.Start(rest))

	got := d.AllocatedRanges()
	want := []Range{{Start: 0, End: 30}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllocatedRanges() mismatch (-want +got):\n%s", diff)
	}

	prev, ok = d.Prev(c)
	require.True(t, ok)
	require.Equal(t, rest, prev)
	next, ok = d.Next(mid)
	require.True(t, ok)
	require.Equal(t, rest, next)
}

func TestPayloadRoundTrip(t *testing.T) {
	d := New[string](0)
	a := d.Alloc(10, "original")
	require.Equal(t, "original", d.Payload(a))
	d.SetPayload(a, "updated")
	require.Equal(t, "updated", d.Payload(a))
}
