package keyindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/emberstore/internal/directory"
)

func TestIsNewerOrdinaryCase(t *testing.T) {
	require.True(t, IsNewer(2, 1))
	require.False(t, IsNewer(1, 2))
	require.False(t, IsNewer(1, 1))
}

func TestIsNewerWrapsAround(t *testing.T) {
	// A small raw value can still be "newer" than a huge one if it's within
	// half the ring's distance ahead, per the wrapping comparator.
	require.True(t, IsNewer(0, 0xFFFFFFFF))
	require.False(t, IsNewer(0xFFFFFFFF, 0))
}

func TestNextVersionWrapsAt32Bits(t *testing.T) {
	require.Equal(t, uint32(0), NextVersion(0xFFFFFFFF))
	require.Equal(t, uint32(1), NextVersion(0))
}

func TestIndexAppendAndCurrent(t *testing.T) {
	idx := New()
	e1 := &LiveEntry{Key: "a", EntryBlock: 1, DataBlock: 1, DataVersion: 0}
	idx.Append("a", e1)

	cur, ok := idx.Current("a")
	require.True(t, ok)
	require.Same(t, e1, cur)
	require.Equal(t, 1, idx.Count())

	e2 := &LiveEntry{Key: "a", EntryBlock: 2, DataBlock: 2, DataVersion: 1}
	idx.Append("a", e2)

	cur, ok = idx.Current("a")
	require.True(t, ok)
	require.Same(t, e2, cur)
	require.Equal(t, 1, idx.Count(), "appending a new version for an existing key does not add a key")

	seq, ok := idx.Sequence("a")
	require.True(t, ok)
	require.Len(t, seq, 2)
}

func TestIndexRemoveEntryDropsEmptySequence(t *testing.T) {
	idx := New()
	e1 := &LiveEntry{Key: "a", EntryBlock: 1}
	idx.Append("a", e1)

	removed := idx.RemoveEntry("a", e1)
	require.True(t, removed)
	_, ok := idx.Current("a")
	require.False(t, ok)
	require.Equal(t, 0, idx.Count())
}

func TestIndexRemoveEntryKeepsSurvivingVersions(t *testing.T) {
	idx := New()
	e1 := &LiveEntry{Key: "a", EntryBlock: 1}
	e2 := &LiveEntry{Key: "a", EntryBlock: 2}
	idx.Append("a", e1)
	idx.Append("a", e2)

	require.True(t, idx.RemoveEntry("a", e1))
	cur, ok := idx.Current("a")
	require.True(t, ok)
	require.Same(t, e2, cur)
}

func TestIndexDeleteKeyReturnsFullSequence(t *testing.T) {
	idx := New()
	e1 := &LiveEntry{Key: "a", EntryBlock: 1}
	e2 := &LiveEntry{Key: "a", EntryBlock: 2}
	idx.Append("a", e1)
	idx.Append("a", e2)

	seq, ok := idx.DeleteKey("a")
	require.True(t, ok)
	require.Len(t, seq, 2)
	_, ok = idx.Current("a")
	require.False(t, ok)
}

func TestIndexForEachRespectsInsertionOrderAndSkipsDeleted(t *testing.T) {
	idx := New()
	idx.Append("a", &LiveEntry{Key: "a"})
	idx.Append("b", &LiveEntry{Key: "b"})
	idx.Append("c", &LiveEntry{Key: "c"})
	idx.DeleteKey("b")

	var seen []string
	idx.ForEach(func(key string) bool {
		seen = append(seen, key)
		return true
	})
	require.Equal(t, []string{"a", "c"}, seen)
}

func TestIndexForEachStopsEarly(t *testing.T) {
	idx := New()
	idx.Append("a", &LiveEntry{Key: "a"})
	idx.Append("b", &LiveEntry{Key: "b"})
	idx.Append("c", &LiveEntry{Key: "c"})

	var seen []string
	idx.ForEach(func(key string) bool {
		seen = append(seen, key)
		return key != "b"
	})
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestLiveEntryUsesDirectoryBlockIDs(t *testing.T) {
	le := &LiveEntry{EntryBlock: directory.NoBlock, DataBlock: directory.NoBlock}
	require.Equal(t, directory.NoBlock, le.EntryBlock)
}
