// Package keyindex implements the in-memory map from key to its sequence of
// LiveEntries, and the wrapping data_version comparator
// used both at load time and whenever compaction or a new set must decide
// which of two entries for a key is newer.
package keyindex

import "github.com/iamNilotpal/emberstore/internal/directory"

// PurgingState tags a LiveEntry with what, if anything, is queued to be
// freed about it.
type PurgingState int

const (
	// None means the entry is live and not queued for reclamation.
	None PurgingState = iota
	// EntryOnly means the entry block is queued for reclamation while its
	// data block remains allocated, referenced by a newer entry.
	EntryOnly
	// EntryAndData means both the entry block and the data block are
	// queued for reclamation.
	EntryAndData
)

// LiveEntry is one version of a key's stored value, live or pending
// reclamation. It carries its own key so that compaction, starting from a
// directory's last block, can recover which KeyIndex sequence to update
// without a pointer cycle back through the directory.
type LiveEntry struct {
	Key           string
	EntryBlock    directory.BlockID
	DataBlock     directory.BlockID
	ValueLocation int64
	DataVersion   uint32
	Purging       PurgingState
}

// IsNewer reports whether a is newer than b under the wrapping comparator:
// (a-b) mod 2^32 in [1, 2^31) means a is newer. Equality (diff == 0) is
// never "newer" either direction.
func IsNewer(a, b uint32) bool {
	diff := a - b
	return diff != 0 && diff < (1<<31)
}

// NextVersion returns the version that supersedes v, wrapping at 2^32.
func NextVersion(v uint32) uint32 {
	return v + 1
}

// Index maps keys to their LiveEntry sequence, where the last element of a
// sequence is the current authoritative entry and any earlier elements are
// superseded and queued for reclamation. It also tracks first-insertion
// order for Cursor, independent of later mutation.
type Index struct {
	entries map[string][]*LiveEntry
	order   []string // insertion order; may include keys no longer present
}

// New constructs an empty Index.
func New() *Index {
	return &Index{entries: make(map[string][]*LiveEntry)}
}

// Count returns the number of distinct live keys.
func (idx *Index) Count() int {
	return len(idx.entries)
}

// Current returns the authoritative (last) LiveEntry for key, if the key
// exists.
func (idx *Index) Current(key string) (*LiveEntry, bool) {
	seq, ok := idx.entries[key]
	if !ok || len(seq) == 0 {
		return nil, false
	}
	return seq[len(seq)-1], true
}

// Sequence returns the full live+superseded sequence for key, newest last.
// The returned slice is owned by the Index; callers must not mutate it.
func (idx *Index) Sequence(key string) ([]*LiveEntry, bool) {
	seq, ok := idx.entries[key]
	return seq, ok
}

// Append adds entry as the new authoritative version for key, creating the
// key's sequence (and recording insertion order) if this is its first
// appearance.
func (idx *Index) Append(key string, entry *LiveEntry) {
	if _, ok := idx.entries[key]; !ok {
		idx.order = append(idx.order, key)
	}
	idx.entries[key] = append(idx.entries[key], entry)
}

// Seed is like Append but used while rebuilding the index at load time, to
// make the call site read distinctly in engine recovery code.
func (idx *Index) Seed(key string, entry *LiveEntry) {
	idx.Append(key, entry)
}

// RemoveEntry removes one specific LiveEntry from key's sequence (used when
// a superseded entry is reclaimed or compacted away). If the sequence
// becomes empty, the key is dropped entirely. Reports whether entry was
// found.
func (idx *Index) RemoveEntry(key string, entry *LiveEntry) bool {
	seq, ok := idx.entries[key]
	if !ok {
		return false
	}
	for i, e := range seq {
		if e == entry {
			seq = append(seq[:i], seq[i+1:]...)
			if len(seq) == 0 {
				delete(idx.entries, key)
			} else {
				idx.entries[key] = seq
			}
			return true
		}
	}
	return false
}

// DeleteKey removes key entirely, returning its full sequence (both live and
// any still-pending superseded entries) so the caller can free every
// referenced block.
func (idx *Index) DeleteKey(key string) ([]*LiveEntry, bool) {
	seq, ok := idx.entries[key]
	if !ok {
		return nil, false
	}
	delete(idx.entries, key)
	return seq, true
}

// ForEach calls fn once per currently-live key in first-insertion order,
// stopping early if fn returns false. Keys removed since their insertion are
// skipped.
func (idx *Index) ForEach(fn func(key string) bool) {
	// A key deleted and later re-added appears in order more than once.
	seen := make(map[string]bool, len(idx.entries))
	for _, key := range idx.order {
		if _, ok := idx.entries[key]; !ok || seen[key] {
			continue
		}
		seen[key] = true
		if !fn(key) {
			return
		}
	}
}
