package engine

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/emberstore/internal/codec"
	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/pkg/clock"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
	"github.com/iamNilotpal/emberstore/pkg/hasher"
	"github.com/iamNilotpal/emberstore/pkg/logger"
	"github.com/iamNilotpal/emberstore/pkg/options"
)

// memFS backs a FileOpener with a fixed set of in-memory files keyed by
// path, so repeated Open calls against the same folder observe the same
// bytes — simulating a close/reopen cycle without touching the real
// filesystem — and so tests can reach the raw bytes to corrupt them.
type memFS struct {
	folder string
	files  map[string]*filesys.MemFile
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]*filesys.MemFile)}
}

func (fs *memFS) open(path string) (filesys.FileIO, error) {
	if f, ok := fs.files[path]; ok {
		return f, nil
	}
	f := filesys.NewMemFile()
	fs.files[path] = f
	return f, nil
}

// file returns the in-memory file whose base name matches, failing the test
// if the engine never opened it.
func (fs *memFS) file(t *testing.T, name string) *filesys.MemFile {
	t.Helper()
	for path, f := range fs.files {
		if filepath.Base(path) == name {
			return f
		}
	}
	t.Fatalf("no in-memory file named %q was opened", name)
	return nil
}

func openTest(t *testing.T, fs *memFS, fakeClock *clock.Fake, extra ...options.OptionFunc) *Engine {
	t.Helper()
	if fs.folder == "" {
		fs.folder = t.TempDir()
	}
	opts := []options.OptionFunc{
		options.WithFolder(fs.folder),
		options.WithFileIO(fs.open),
		options.WithLogger(logger.NewNop()),
	}
	if fakeClock != nil {
		opts = append(opts, options.WithClock(fakeClock))
	}
	opts = append(opts, extra...)

	e, err := Open(opts...)
	require.NoError(t, err)
	return e
}

// Scenario 1: a single set is immediately visible and counted.
func TestSeedScenarioSetThenGet(t *testing.T) {
	e := openTest(t, newMemFS(), nil)
	defer e.Close()

	require.NoError(t, e.Set("test", []byte{0, 1, 2, 3, 4, 5}))

	value, ok, err := e.Get("test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5}, value)
	require.Equal(t, 1, e.Count())
}

// Scenario 2: a second set for the same key supersedes the first, and with
// an inline (zero-delay) reclaim the superseded version's space is reused
// so the files end up exactly the size they were after the first set alone.
func TestSeedScenarioOverwriteWithInlineReclaimReusesSpace(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil, options.WithReclaimDelay(0))

	require.NoError(t, e.Set("a", []byte("v1")))
	entriesSizeAfterFirst := e.entriesSize
	dataSizeAfterFirst := e.dataSize

	require.NoError(t, e.Set("a", []byte("v2")))
	value, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)
	require.Equal(t, 1, e.Count())
	require.NoError(t, e.Close())

	reopened := openTest(t, fs, nil, options.WithReclaimDelay(0))
	defer reopened.Close()
	require.Equal(t, entriesSizeAfterFirst, reopened.entriesSize)
	require.Equal(t, dataSizeAfterFirst, reopened.dataSize)
}

// Scenario 3: reopening after an external patch that rewrites a later
// version's raw data_version to a huge value still picks the untouched
// first version as newer, because under the wrapping comparator 0 is ahead
// of 0xFAFBFCFD by less than half the ring.
func TestSeedScenarioWrappingComparatorSurvivesExternalPatch(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil)

	require.NoError(t, e.Set("x", []byte("v1")))
	require.NoError(t, e.Set("x", []byte("v2")))
	require.NoError(t, e.Close())

	entriesFile := fs.file(t, "entries.db")
	dataFile := fs.file(t, "data.db")
	raw := entriesFile.Snapshot()

	// The second entry's body begins right after the first entry's
	// header+body; its data_version is the 4 bytes after the packed
	// data_location.
	secondEntryStart := codec.MagicSize + codec.EntrySize
	secondBodyStart := secondEntryStart + codec.HeaderSize
	versionOffset := secondBodyStart + codec.DataLocationSize
	putUint32Patch(raw, versionOffset, 0xFAFBFCFD)

	// Recompute the digest so the patched entry still validates; the point
	// is to exercise the version comparator, not corruption handling. The
	// second data record sits right after the first ("\x00" + "x" + "v1").
	secondRecordStart := codec.MagicSize + 1 + 1 + 2
	record := make([]byte, 1+1+2)
	copy(record, dataFile.Snapshot()[secondRecordStart:])
	digest := hasher.New().Sum16(raw[secondBodyStart:secondBodyStart+codec.BodySize], record)
	copy(raw[secondEntryStart+1:secondBodyStart], digest[:])
	entriesFile.Restore(raw)

	reopened := openTest(t, fs, nil)
	defer reopened.Close()

	value, ok, err := reopened.Get("x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)
}

// Scenario 4: while reclamation is pending, file sizes stay inflated; once
// the delay elapses and the timer sweeps the queue, they shrink.
func TestSeedScenarioDelayedReclaimShrinksAfterDeadline(t *testing.T) {
	fs := newMemFS()
	fakeClock := clock.NewFake(0)
	e := openTest(t, fs, fakeClock, options.WithReclaimDelay(100))
	defer e.Close()

	require.NoError(t, e.Set("aaa", []byte("v1")))
	entriesSizeAfterFirst := e.entriesSize
	dataSizeAfterFirst := e.dataSize

	require.NoError(t, e.Set("aaa", []byte("v2")))
	require.NoError(t, e.Set("aaa", []byte("v3")))

	fakeClock.Advance(100)
	require.NoError(t, e.Set("bbb", []byte("v1")))

	require.Greater(t, e.entriesSize, entriesSizeAfterFirst)
	require.Greater(t, e.dataSize, dataSizeAfterFirst)

	entriesSizeBeforeSweep := e.entriesSize
	dataSizeBeforeSweep := e.dataSize
	fakeClock.Advance(100)

	require.Less(t, e.entriesSize, entriesSizeBeforeSweep)
	require.Less(t, e.dataSize, dataSizeBeforeSweep)
}

// Scenario 5: externally invalidating a subset of entries leaves holes that
// a reopen compacts by relocating tail blocks, with the exact allocated
// ranges depending on the reclaim mode: delayed reclamation keeps the old
// copies of moved blocks allocated until their deadline, while inline
// reclamation collapses everything to a single leading range.
func TestSeedScenarioInvalidatedEntriesCompactOnReopen(t *testing.T) {
	const (
		keyLen     = 5
		valueLen   = 6
		recordSize = 1 + keyLen + valueLen
	)

	build := func(t *testing.T) *memFS {
		fs := newMemFS()
		e := openTest(t, fs, clock.NewFake(0))
		keys := []string{"test0", "test1", "test2", "test3", "test4", "test5", "test6", "test7"}
		for _, k := range keys {
			require.NoError(t, e.Set(k, []byte("value_")))
		}
		require.NoError(t, e.Close())

		entriesFile := fs.file(t, "entries.db")
		raw := entriesFile.Snapshot()
		for _, i := range []int64{1, 2, 4, 7} {
			raw[codec.MagicSize+i*codec.EntrySize+1] ^= 0xFF // flip a digest byte
		}
		entriesFile.Restore(raw)
		return fs
	}

	m := codec.MagicSize
	entrySize := int64(codec.EntrySize)

	t.Run("delayed reclaim keeps moved originals until deadline", func(t *testing.T) {
		reopened := openTest(t, build(t), clock.NewFake(0))
		defer reopened.Close()

		entries, data := reopened.AllocatedRanges()
		wantEntries := []directory.Range{
			{Start: 0, End: m + 4*entrySize},
			{Start: m + 5*entrySize, End: m + 7*entrySize},
		}
		wantData := []directory.Range{
			{Start: 0, End: m + 4*recordSize},
			{Start: m + 5*recordSize, End: m + 7*recordSize},
		}
		if diff := cmp.Diff(wantEntries, entries); diff != "" {
			t.Errorf("entries ranges mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(wantData, data); diff != "" {
			t.Errorf("data ranges mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("inline reclaim collapses to a single range", func(t *testing.T) {
		reopened := openTest(t, build(t), clock.NewFake(0), options.WithReclaimDelay(0))
		defer reopened.Close()

		entries, data := reopened.AllocatedRanges()
		wantEntries := []directory.Range{{Start: 0, End: m + 4*entrySize}}
		wantData := []directory.Range{{Start: 0, End: m + 4*recordSize}}
		if diff := cmp.Diff(wantEntries, entries); diff != "" {
			t.Errorf("entries ranges mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(wantData, data); diff != "" {
			t.Errorf("data ranges mismatch (-want +got):\n%s", diff)
		}

		require.Equal(t, 4, reopened.Count())
		for _, k := range []string{"test0", "test3", "test5", "test6"} {
			value, ok, err := reopened.Get(k)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, []byte("value_"), value)
		}
	})
}

// Scenario 6: deleting a key with a shrinkable tail triggers compaction
// that fills the hole from the back of the file and truncates it away.
func TestSeedScenarioDeleteTriggersCompactionAndTruncation(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil, options.WithReclaimDelay(0))
	defer e.Close()

	keys := []string{"test0", "test1", "test2", "test3", "test4", "test5", "test6"}
	for _, k := range keys {
		value := []byte("xxxxxx")
		if k == "test2" {
			value = make([]byte, 24)
		}
		require.NoError(t, e.Set(k, value))
	}

	dataSizeBeforeDelete := e.dataSize
	existed, err := e.Delete("test2")
	require.NoError(t, err)
	require.True(t, existed)

	require.Equal(t, dataSizeBeforeDelete-24, e.dataSize)
	require.Equal(t, 6, e.Count())

	for _, k := range keys {
		if k == "test2" {
			continue
		}
		value, ok, err := e.Get(k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("xxxxxx"), value)
	}
}

// A torn write that persists the new data record but not its entry must
// leave the previous value live on reopen, and the orphaned data bytes must
// be truncated away.
func TestCrashBetweenDataAndEntryFsyncKeepsPreviousValue(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil)

	require.NoError(t, e.Set("k", []byte("v1")))
	dataSizeAfterFirst := e.dataSize
	entriesAfterFirst := fs.file(t, "entries.db").Snapshot()

	require.NoError(t, e.Set("k", []byte("v2")))
	require.NoError(t, e.Close())

	// Roll the entries file back to the pre-v2 state while the data file
	// keeps v2's record, as if the crash hit between the two fsyncs.
	fs.file(t, "entries.db").Restore(entriesAfterFirst)

	reopened := openTest(t, fs, nil)
	defer reopened.Close()

	value, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)
	require.Equal(t, dataSizeAfterFirst, reopened.dataSize,
		"the orphaned data record must be truncated away on reopen")
}

func TestDeleteOfMissingKeyReportsFalse(t *testing.T) {
	e := openTest(t, newMemFS(), nil)
	defer e.Close()

	existed, err := e.Delete("nope")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestEmptyKeyAndEmptyValueAreLegal(t *testing.T) {
	e := openTest(t, newMemFS(), nil)
	defer e.Close()

	require.NoError(t, e.Set("", []byte("v")))
	require.NoError(t, e.Set("empty-value", nil))

	value, ok, err := e.Get("")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	value, ok, err = e.Get("empty-value")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, value)
}

func TestCorruptedEntryDigestIsDroppedOnLoad(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil)

	require.NoError(t, e.Set("only", []byte("v1")))
	require.NoError(t, e.Close())

	entriesFile := fs.file(t, "entries.db")
	raw := entriesFile.Snapshot()
	raw[codec.MagicSize+1] ^= 0xFF // flip a byte inside the digest
	entriesFile.Restore(raw)

	reopened := openTest(t, fs, nil)
	defer reopened.Close()

	_, ok, err := reopened.Get("only")
	require.NoError(t, err)
	require.False(t, ok, "a corrupted entry must be dropped on load rather than surfaced")
	require.Equal(t, 0, reopened.Count())
}

func TestSetFsyncsBothFiles(t *testing.T) {
	fs := newMemFS()
	e := openTest(t, fs, nil)
	defer e.Close()

	entriesBefore := fs.file(t, "entries.db").FsyncCount()
	dataBefore := fs.file(t, "data.db").FsyncCount()

	require.NoError(t, e.Set("k", []byte("v")))

	require.Greater(t, fs.file(t, "entries.db").FsyncCount(), entriesBefore)
	require.Greater(t, fs.file(t, "data.db").FsyncCount(), dataBefore)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := openTest(t, newMemFS(), nil)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestOperationsAfterCloseReturnEngineClosedError(t *testing.T) {
	e := openTest(t, newMemFS(), nil)
	require.NoError(t, e.Close())

	_, _, err := e.Get("x")
	require.Error(t, err)

	err = e.Set("x", []byte("v"))
	require.Error(t, err)

	_, err = e.Delete("x")
	require.Error(t, err)
}

func putUint32Patch(b []byte, offset int64, v uint32) {
	b[offset] = byte(v >> 24)
	b[offset+1] = byte(v >> 16)
	b[offset+2] = byte(v >> 8)
	b[offset+3] = byte(v)
}
