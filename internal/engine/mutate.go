package engine

import (
	"github.com/iamNilotpal/emberstore/internal/codec"
	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/internal/keyindex"
	"github.com/iamNilotpal/emberstore/pkg/errors"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
)

// Set stores value under key, superseding any prior value for the same key.
// Empty keys and empty values are both legal.
func (e *Engine) Set(key string, value []byte) error {
	if err := e.checkClosed("Set"); err != nil {
		return err
	}

	if _, err := e.checkReclaimLoop(); err != nil {
		return err
	}

	prev, hadPrev := e.index.Current(key)

	var newVersion uint32
	if hadPrev {
		newVersion = keyindex.NextVersion(prev.DataVersion)
	}

	keyBytes := []byte(key)
	dataRecord := codec.BuildDataRecord(keyBytes, value)
	dataBlock := e.dataDir.Alloc(int64(len(dataRecord)), nil)
	dataLocation := e.dataDir.Start(dataBlock)

	body := codec.EntryBody{
		DataLocation: uint64(dataLocation),
		DataVersion:  newVersion,
		KeySize:      uint32(len(keyBytes)),
		ValueSize:    uint32(len(value)),
	}
	header, bodyBytes := codec.EncodeEntry(e.hasher, body, dataRecord)

	if err := e.writeAt(e.dataFile, dataRecord, dataLocation, "Set", "data"); err != nil {
		return err
	}
	if err := e.fsync(e.dataFile, "Set", "data"); err != nil {
		return err
	}
	if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
		return err
	}
	if dataLocation+int64(len(dataRecord)) > e.dataSize {
		e.dataSize = dataLocation + int64(len(dataRecord))
	}

	entryBlock := e.entriesDir.Alloc(codec.EntrySize, nil)
	entryLocation := e.entriesDir.Start(entryBlock)

	if err := e.writeAt(e.entriesFile, header, entryLocation, "Set", "entries"); err != nil {
		return err
	}
	if err := e.writeAt(e.entriesFile, bodyBytes, entryLocation+codec.HeaderSize, "Set", "entries"); err != nil {
		return err
	}
	if err := e.fsync(e.entriesFile, "Set", "entries"); err != nil {
		return err
	}
	if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
		return err
	}
	if entryLocation+codec.EntrySize > e.entriesSize {
		e.entriesSize = entryLocation + codec.EntrySize
	}

	newEntry := &keyindex.LiveEntry{
		Key:           key,
		EntryBlock:    entryBlock,
		DataBlock:     dataBlock,
		ValueLocation: dataLocation + 1 + int64(len(keyBytes)),
		DataVersion:   newVersion,
		Purging:       keyindex.None,
	}
	e.entriesDir.SetPayload(entryBlock, newEntry)
	e.dataDir.SetPayload(dataBlock, newEntry)
	e.index.Append(key, newEntry)

	if hadPrev {
		prev.Purging = keyindex.EntryAndData
		if e.reclaimDelayMillis == 0 {
			openedHole := false
			seq, _ := e.index.Sequence(key)
			superseded := append([]*keyindex.LiveEntry(nil), seq[:len(seq)-1]...)
			for _, old := range superseded {
				if old.Purging == keyindex.None {
					old.Purging = keyindex.EntryAndData
				}
				if e.freeLiveEntry(old) {
					openedHole = true
				}
				e.index.RemoveEntry(key, old)
			}
			if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
				return err
			}
			if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
				return err
			}
			if openedHole {
				if err := e.runCompactionLoop(); err != nil {
					return err
				}
			}
		} else {
			e.enqueueReclaim(key, prev)
		}
	}

	return nil
}

// Get returns the current value for key, if it exists.
func (e *Engine) Get(key string) ([]byte, bool, error) {
	if err := e.checkClosed("Get"); err != nil {
		return nil, false, err
	}
	le, ok := e.index.Current(key)
	if !ok {
		return nil, false, nil
	}
	value, err := e.readValue(le)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// readValue reads just the value bytes for a LiveEntry, used by both Get
// and Cursor.
func (e *Engine) readValue(le *keyindex.LiveEntry) ([]byte, error) {
	size := e.dataDir.Size(le.DataBlock) - (1 + int64(len(le.Key)))
	if size < 0 {
		return nil, errors.NewCorruptionError(nil, e.dataDir.Start(le.DataBlock), "data block smaller than its key")
	}
	buf := make([]byte, size)
	if _, err := e.dataFile.ReadAt(buf, le.ValueLocation); err != nil {
		return nil, e.wrapIOErr(err, "Get", "data", le.ValueLocation)
	}
	return buf, nil
}

// Delete removes key and all of its entries, live and pending reclamation
// alike, reporting whether the key existed.
func (e *Engine) Delete(key string) (bool, error) {
	if err := e.checkClosed("Delete"); err != nil {
		return false, err
	}

	seq, ok := e.index.DeleteKey(key)
	if !ok {
		return false, nil
	}

	freedData := make(map[directory.BlockID]bool, len(seq))
	openedHole := false

	for _, le := range seq {
		e.removeFromQueueIfPresent(le)
		if !e.entriesDir.Free(le.EntryBlock) {
			openedHole = true
		}
		if !freedData[le.DataBlock] {
			freedData[le.DataBlock] = true
			if !e.dataDir.Free(le.DataBlock) {
				openedHole = true
			}
		}
	}

	if err := e.fsync(e.entriesFile, "Delete", "entries"); err != nil {
		return false, err
	}
	if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
		return false, err
	}
	if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
		return false, err
	}
	if openedHole {
		if err := e.runCompactionLoop(); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (e *Engine) writeAt(file filesys.FileIO, p []byte, off int64, op, fileLabel string) error {
	if err := file.WriteAt(p, off); err != nil {
		return e.wrapIOErr(err, op, fileLabel, off)
	}
	return nil
}

func (e *Engine) fsync(file filesys.FileIO, op, fileLabel string) error {
	if err := file.Fsync(); err != nil {
		return e.wrapIOErr(errors.ClassifySyncError(err, fileLabel), op, fileLabel, -1)
	}
	return nil
}
