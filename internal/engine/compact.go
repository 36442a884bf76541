package engine

import (
	"github.com/iamNilotpal/emberstore/internal/codec"
	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/internal/keyindex"
)

// runCompactionLoop repeatedly runs a data-file pass and an entries-file
// pass until neither makes progress. Every successful move strictly shrinks
// the candidate's distance from the front of the file, so the loop cannot
// cycle forever. Each round ends with a truncation check: a move whose old
// blocks were freed inline can lower the allocated end of either file.
func (e *Engine) runCompactionLoop() error {
	for {
		movedData, err := e.compactDataPass()
		if err != nil {
			return err
		}
		movedEntry, err := e.compactEntryPass()
		if err != nil {
			return err
		}
		if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
			return err
		}
		if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
			return err
		}
		if !movedData && !movedEntry {
			return nil
		}
	}
}

// firstFittingGap scans gaps in ascending file-location order and returns
// the first one both large enough for size and strictly before
// beforeLocation, honoring the rule that a block is never moved into a gap
// at or past its own current location.
func firstFittingGap(gaps []directory.Gap, size, beforeLocation int64) (directory.Gap, bool) {
	for _, gap := range gaps {
		if gap.Location >= beforeLocation {
			break
		}
		if gap.Space >= size {
			return gap, true
		}
	}
	return directory.Gap{}, false
}

// compactDataPass walks the data directory from its last block toward the
// file head, relocating every candidate that fits an earlier gap. Blocks
// whose payload is already purging are skipped: moving one would duplicate
// its pending reclamation. Reports whether any move was made.
func (e *Engine) compactDataPass() (bool, error) {
	moved := false
	id, ok := e.dataDir.LastBlock()
	for ok {
		prev, hasPrev := e.dataDir.Prev(id)

		entry := e.dataDir.Payload(id)
		if entry != nil && entry.Purging == keyindex.None {
			size := e.dataDir.Size(id)
			_, gaps := e.dataDir.FreeRangesSummary()
			if gap, found := firstFittingGap(gaps, size, e.dataDir.Start(id)); found {
				// With an inline (zero-delay) reclaim the candidate's old
				// block is freed during the move, so the walk continues from
				// the neighbor captured above.
				if err := e.moveDataBlock(id, entry, gap); err != nil {
					return moved, err
				}
				moved = true
			}
		}
		id, ok = prev, hasPrev
	}
	return moved, nil
}

// moveDataBlock copies a data block's bytes into gap, writes a fresh entry
// record pointing at the new location (since data_version bumps whenever
// data_location changes for a live key), and queues or frees the old pair.
func (e *Engine) moveDataBlock(oldBlock directory.BlockID, oldEntry *keyindex.LiveEntry, gap directory.Gap) error {
	oldStart := e.dataDir.Start(oldBlock)
	size := e.dataDir.Size(oldBlock)

	buf := make([]byte, size)
	if _, err := e.dataFile.ReadAt(buf, oldStart); err != nil {
		return e.wrapIOErr(err, "compact", "data", oldStart)
	}

	var newDataBlock directory.BlockID
	if gap.PrevBlock == directory.NoBlock {
		newDataBlock = e.dataDir.AllocLeading(size, nil)
	} else {
		newDataBlock = e.dataDir.AllocAfter(gap.PrevBlock, size, nil)
	}
	newDataLocation := e.dataDir.Start(newDataBlock)

	if err := e.writeAt(e.dataFile, buf, newDataLocation, "compact", "data"); err != nil {
		return err
	}
	if err := e.fsync(e.dataFile, "compact", "data"); err != nil {
		return err
	}

	newVersion := keyindex.NextVersion(oldEntry.DataVersion)
	newEntryBlock := e.entriesDir.Alloc(codec.EntrySize, nil)
	newEntryLocation := e.entriesDir.Start(newEntryBlock)

	keyBytes := []byte(oldEntry.Key)
	body := codec.EntryBody{
		DataLocation: uint64(newDataLocation),
		DataVersion:  newVersion,
		KeySize:      uint32(len(keyBytes)),
		ValueSize:    uint32(size) - 1 - uint32(len(keyBytes)),
	}
	header, bodyBytes := codec.EncodeEntry(e.hasher, body, buf)

	if err := e.writeAt(e.entriesFile, header, newEntryLocation, "compact", "entries"); err != nil {
		return err
	}
	if err := e.writeAt(e.entriesFile, bodyBytes, newEntryLocation+codec.HeaderSize, "compact", "entries"); err != nil {
		return err
	}
	if err := e.fsync(e.entriesFile, "compact", "entries"); err != nil {
		return err
	}
	if newEntryLocation+codec.EntrySize > e.entriesSize {
		e.entriesSize = newEntryLocation + codec.EntrySize
	}

	newEntry := &keyindex.LiveEntry{
		Key:           oldEntry.Key,
		EntryBlock:    newEntryBlock,
		DataBlock:     newDataBlock,
		ValueLocation: newDataLocation + 1 + int64(len(keyBytes)),
		DataVersion:   newVersion,
		Purging:       keyindex.None,
	}
	e.entriesDir.SetPayload(newEntryBlock, newEntry)
	e.dataDir.SetPayload(newDataBlock, newEntry)
	e.index.Append(oldEntry.Key, newEntry)

	oldEntry.Purging = keyindex.EntryAndData
	if e.reclaimDelayMillis == 0 {
		e.freeLiveEntry(oldEntry)
		e.index.RemoveEntry(oldEntry.Key, oldEntry)
	} else {
		e.enqueueReclaim(oldEntry.Key, oldEntry)
	}
	return nil
}

// compactEntryPass is compactDataPass's counterpart for the entries file:
// it relocates entry records without touching data_location or
// data_version, so the data block's payload back-reference must be
// repointed at the freshly written LiveEntry.
func (e *Engine) compactEntryPass() (bool, error) {
	moved := false
	id, ok := e.entriesDir.LastBlock()
	for ok {
		prev, hasPrev := e.entriesDir.Prev(id)

		entry := e.entriesDir.Payload(id)
		if entry != nil && entry.Purging == keyindex.None {
			size := e.entriesDir.Size(id)
			_, gaps := e.entriesDir.FreeRangesSummary()
			if gap, found := firstFittingGap(gaps, size, e.entriesDir.Start(id)); found {
				if err := e.moveEntryBlock(id, entry, gap); err != nil {
					return moved, err
				}
				moved = true
			}
		}
		id, ok = prev, hasPrev
	}
	return moved, nil
}

func (e *Engine) moveEntryBlock(oldBlock directory.BlockID, oldEntry *keyindex.LiveEntry, gap directory.Gap) error {
	oldStart := e.entriesDir.Start(oldBlock)

	buf := make([]byte, codec.EntrySize)
	if _, err := e.entriesFile.ReadAt(buf, oldStart); err != nil {
		return e.wrapIOErr(err, "compact", "entries", oldStart)
	}

	var newEntryBlock directory.BlockID
	if gap.PrevBlock == directory.NoBlock {
		newEntryBlock = e.entriesDir.AllocLeading(codec.EntrySize, nil)
	} else {
		newEntryBlock = e.entriesDir.AllocAfter(gap.PrevBlock, codec.EntrySize, nil)
	}
	newLocation := e.entriesDir.Start(newEntryBlock)

	if err := e.writeAt(e.entriesFile, buf, newLocation, "compact", "entries"); err != nil {
		return err
	}
	if err := e.fsync(e.entriesFile, "compact", "entries"); err != nil {
		return err
	}

	newEntry := &keyindex.LiveEntry{
		Key:           oldEntry.Key,
		EntryBlock:    newEntryBlock,
		DataBlock:     oldEntry.DataBlock,
		ValueLocation: oldEntry.ValueLocation,
		DataVersion:   oldEntry.DataVersion,
		Purging:       keyindex.None,
	}
	e.entriesDir.SetPayload(newEntryBlock, newEntry)
	e.dataDir.SetPayload(oldEntry.DataBlock, newEntry)
	e.index.Append(oldEntry.Key, newEntry)

	oldEntry.Purging = keyindex.EntryOnly
	if e.reclaimDelayMillis == 0 {
		e.freeLiveEntry(oldEntry)
		e.index.RemoveEntry(oldEntry.Key, oldEntry)
	} else {
		e.enqueueReclaim(oldEntry.Key, oldEntry)
	}
	return nil
}
