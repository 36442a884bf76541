package engine

import (
	"errors"
	"io"
	"sort"

	"github.com/iamNilotpal/emberstore/internal/codec"
	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/internal/keyindex"
	pkgerrors "github.com/iamNilotpal/emberstore/pkg/errors"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
)

// loadedRecord is one successfully decoded Entry+DataRecord pair found
// during the sequential scan, before winners and losers have been decided.
type loadedRecord struct {
	entryLocation int64
	dataLocation  int64
	dataVersion   uint32
	keySize       uint32
	valueSize     uint32
	key           string
}

// load performs crash recovery: it scans the entries
// file sequentially from just past the magic, decodes and validates every
// candidate record, groups the survivors by key, picks the newest version of
// each as the winner, seeds both directories and the key index, and queues
// or frees every superseded record depending on the configured reclaim
// delay.
func (e *Engine) load() error {
	records, err := e.scanEntries()
	if err != nil {
		return err
	}

	byKey := make(map[string][]*loadedRecord)
	for _, rec := range records {
		byKey[rec.key] = append(byKey[rec.key], rec)
	}

	winners := make(map[string]*loadedRecord, len(byKey))
	for key, recs := range byKey {
		best := recs[0]
		for _, rec := range recs[1:] {
			if keyindex.IsNewer(rec.dataVersion, best.dataVersion) {
				best = rec
			} else if rec.dataVersion == best.dataVersion && rec.entryLocation > best.entryLocation {
				best = rec
			}
		}
		winners[key] = best
	}

	entryBlocks := make(map[int64]directory.BlockID, len(records))
	for _, rec := range records {
		blockID := e.entriesDir.Seed(rec.entryLocation, rec.entryLocation+codec.EntrySize, nil)
		entryBlocks[rec.entryLocation] = blockID
	}

	byDataLocation := append([]*loadedRecord(nil), records...)
	sort.Slice(byDataLocation, func(i, j int) bool {
		return byDataLocation[i].dataLocation < byDataLocation[j].dataLocation
	})
	dataBlocks := make(map[int64]directory.BlockID, len(records))
	for _, rec := range byDataLocation {
		if _, ok := dataBlocks[rec.dataLocation]; ok {
			continue
		}
		size := 1 + int64(rec.keySize) + int64(rec.valueSize)
		blockID := e.dataDir.Seed(rec.dataLocation, rec.dataLocation+size, nil)
		dataBlocks[rec.dataLocation] = blockID
	}

	// Build each key's LiveEntry sequence with superseded entries first and
	// the winner last, whatever their relative file positions: the index
	// contract is that a sequence's last element is the authoritative one.
	winnersByKey := make(map[string]*keyindex.LiveEntry, len(byKey))
	supersededByKey := make(map[string][]*keyindex.LiveEntry)
	seenKeys := make(map[string]bool, len(byKey))
	var keyOrder []string

	for _, rec := range records {
		winner := winners[rec.key]
		le := &keyindex.LiveEntry{
			Key:           rec.key,
			EntryBlock:    entryBlocks[rec.entryLocation],
			DataBlock:     dataBlocks[rec.dataLocation],
			ValueLocation: rec.dataLocation + 1 + int64(rec.keySize),
			DataVersion:   rec.dataVersion,
			Purging:       keyindex.None,
		}
		e.entriesDir.SetPayload(le.EntryBlock, le)

		if !seenKeys[rec.key] {
			seenKeys[rec.key] = true
			keyOrder = append(keyOrder, rec.key)
		}

		if rec == winner {
			e.dataDir.SetPayload(le.DataBlock, le)
			winnersByKey[rec.key] = le
			continue
		}

		sameData := rec.dataLocation == winner.dataLocation
		if sameData {
			le.Purging = keyindex.EntryOnly
		} else {
			le.Purging = keyindex.EntryAndData
			e.dataDir.SetPayload(le.DataBlock, le)
		}

		if e.reclaimDelayMillis == 0 {
			e.entriesDir.Free(le.EntryBlock)
			if !sameData {
				e.dataDir.Free(le.DataBlock)
			}
			continue
		}
		supersededByKey[rec.key] = append(supersededByKey[rec.key], le)
	}

	for _, key := range keyOrder {
		for _, le := range supersededByKey[key] {
			e.index.Seed(key, le)
			e.enqueueReclaim(key, le)
		}
		e.index.Seed(key, winnersByKey[key])
	}

	return nil
}

// scanEntries sequentially reads every well-formed Entry+DataRecord pair
// from the entries file, stopping cleanly at end of file and logging (but
// not failing on) a truncated final record or a corrupt individual entry. A
// bad entry consumes exactly one entry slot; no resync beyond the fixed
// stride is attempted.
func (e *Engine) scanEntries() ([]*loadedRecord, error) {
	dataSize := e.dataSize

	if e.entriesSize < codec.MagicSize {
		return nil, pkgerrors.NewEngineError(nil, pkgerrors.ErrorCodeMagicMismatch, "entries file shorter than magic")
	}

	reader := filesys.NewSequentialReader(e.entriesFile, codec.MagicSize)
	var records []*loadedRecord

	for {
		entryLocation := reader.Offset()
		header, err := reader.ReadExact(codec.HeaderSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			e.logger.Warnw("stopping recovery at truncated entry header",
				"code", pkgerrors.ErrorCodeHeaderReadFailure, "location", entryLocation, "error", err)
			break
		}

		body, err := reader.ReadExact(codec.BodySize)
		if err != nil {
			e.logger.Warnw("stopping recovery at truncated entry body", "location", entryLocation, "error", err)
			break
		}

		decodedBody := codec.DecodeBody(body)
		recordSize := int64(1) + int64(decodedBody.KeySize) + int64(decodedBody.ValueSize)
		if decodedBody.DataLocation+uint64(recordSize) > uint64(dataSize) {
			e.logger.Warnw("skipping entry with out-of-range data location", "location", entryLocation)
			continue
		}

		dataRecord := make([]byte, recordSize)
		if _, err := e.dataFile.ReadAt(dataRecord, int64(decodedBody.DataLocation)); err != nil {
			e.logger.Warnw("skipping entry whose data record could not be read",
				"code", pkgerrors.ErrorCodePayloadReadFailure, "location", entryLocation, "error", err)
			continue
		}

		if _, err := codec.DecodeEntry(e.hasher, header, body, dataRecord, entryLocation); err != nil {
			e.logger.Warnw("skipping corrupted entry", "location", entryLocation, "error", err)
			continue
		}

		key, _, err := codec.SplitDataRecord(dataRecord, decodedBody.KeySize, decodedBody.ValueSize)
		if err != nil {
			e.logger.Warnw("skipping entry with malformed data record", "location", entryLocation, "error", err)
			continue
		}

		records = append(records, &loadedRecord{
			entryLocation: entryLocation,
			dataLocation:  int64(decodedBody.DataLocation),
			dataVersion:   decodedBody.DataVersion,
			keySize:       decodedBody.KeySize,
			valueSize:     decodedBody.ValueSize,
			key:           string(key),
		})
	}

	return records, nil
}
