// Package engine implements the persistency engine: the component that maps
// string keys to the newest live record across the entries and data files,
// performs crash-safe set/get/delete, runs delayed reclamation of
// superseded records, compacts both files, and truncates whenever the last
// allocated block shrinks.
package engine

import (
	"path/filepath"
	"strings"

	"github.com/iamNilotpal/emberstore/internal/codec"
	"github.com/iamNilotpal/emberstore/internal/directory"
	"github.com/iamNilotpal/emberstore/internal/keyindex"
	"github.com/iamNilotpal/emberstore/pkg/clock"
	"github.com/iamNilotpal/emberstore/pkg/errors"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
	"github.com/iamNilotpal/emberstore/pkg/hasher"
	"github.com/iamNilotpal/emberstore/pkg/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	entriesFileName = "entries.db"
	dataFileName    = "data.db"
)

// blockDir is the concrete directory type both files use: blocks are tagged
// with the LiveEntry that currently owns them (nil from Seed/Alloc until
// SetPayload assigns it).
type blockDir = directory.Directory[*keyindex.LiveEntry]

// Engine is the core, single-threaded persistency engine. It is not safe
// for concurrent use; pkg/store serializes access with a mutex.
type Engine struct {
	folder string

	entriesFile filesys.FileIO
	dataFile    filesys.FileIO

	entriesDir *blockDir
	dataDir    *blockDir
	index      *keyindex.Index

	hasher hasher.Hasher
	clock  clock.Clock
	logger *zap.SugaredLogger

	reclaimDelayMillis int64
	reclaimQueue       []*reclaimItem
	timerArmed         bool
	timerHandle        clock.TimerHandle

	entriesSize int64
	dataSize    int64

	closed bool
}

// Open opens (creating if absent) the two files in folder and recovers the
// in-memory state, applying opts atop the package defaults.
func Open(opts ...options.OptionFunc) (*Engine, error) {
	o := options.NewDefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	folder := strings.TrimSpace(o.Folder)
	if folder == "" {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "Invalid folder").
			WithField("folder").WithRule("required")
	}

	if err := filesys.CreateDir(folder, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, folder)
	}

	entriesPath := filepath.Join(folder, entriesFileName)
	dataPath := filepath.Join(folder, dataFileName)

	entriesFile, err := o.OpenFile(entriesPath)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, entriesPath, entriesFileName)
	}
	dataFile, err := o.OpenFile(dataPath)
	if err != nil {
		_ = entriesFile.Close()
		return nil, errors.ClassifyFileOpenError(err, dataPath, dataFileName)
	}

	e := &Engine{
		folder:             folder,
		entriesFile:        entriesFile,
		dataFile:           dataFile,
		hasher:             o.Hasher,
		clock:              o.Clock,
		logger:             o.Logger,
		reclaimDelayMillis: o.ReclaimDelayMillis,
		index:              keyindex.New(),
	}

	if err := e.ensureMagic(entriesFile, "entries"); err != nil {
		e.closeQuiet()
		return nil, err
	}
	if err := e.ensureMagic(dataFile, "data"); err != nil {
		e.closeQuiet()
		return nil, err
	}

	// Prime the size caches before recovery: load and the compaction that
	// follows it decide whether to truncate by comparing against them.
	if e.entriesSize, err = entriesFile.Size(); err != nil {
		e.closeQuiet()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat entries file")
	}
	if e.dataSize, err = dataFile.Size(); err != nil {
		e.closeQuiet()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat data file")
	}

	e.entriesDir = directory.New[*keyindex.LiveEntry](codec.MagicSize)
	e.dataDir = directory.New[*keyindex.LiveEntry](codec.MagicSize)

	if err := e.load(); err != nil {
		e.closeQuiet()
		return nil, err
	}
	if err := e.runCompactionLoop(); err != nil {
		e.closeQuiet()
		return nil, err
	}
	if err := e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize); err != nil {
		e.closeQuiet()
		return nil, err
	}
	if err := e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize); err != nil {
		e.closeQuiet()
		return nil, err
	}

	return e, nil
}

func (e *Engine) closeQuiet() {
	_ = e.entriesFile.Close()
	_ = e.dataFile.Close()
}

// ensureMagic writes the magic prefix to a brand-new (empty) file, or
// verifies it against an existing one.
func (e *Engine) ensureMagic(f filesys.FileIO, label string) error {
	size, err := f.Size()
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat file").WithFileName(label)
	}
	if size == 0 {
		if err := f.WriteAt(codec.Magic[:], 0); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write magic").WithFileName(label)
		}
		if err := f.Fsync(); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync magic").WithFileName(label)
		}
		return nil
	}

	buf := make([]byte, codec.MagicSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read magic").WithFileName(label)
	}
	if string(buf) != string(codec.Magic[:]) {
		return errors.NewEngineError(nil, errors.ErrorCodeMagicMismatch, label+" file magic mismatch").
			WithFile(label).WithOperation("Open")
	}
	return nil
}

// Count returns the number of distinct live keys.
func (e *Engine) Count() int {
	return e.index.Count()
}

// AllocatedRanges reports the coalesced allocated byte ranges of both files,
// for diagnostics and testing.
func (e *Engine) AllocatedRanges() (entries, data []directory.Range) {
	return e.entriesDir.AllocatedRanges(), e.dataDir.AllocatedRanges()
}

// Close cancels the reclamation timer, drains any already-expired
// reclamations, compacts and truncates if that left work to do, fsyncs and
// closes both files. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.cancelTimer()

	var err error
	_, cerr := e.checkReclaimLoop()
	err = multierr.Append(err, cerr)
	err = multierr.Append(err, e.truncateIfShrunkFile(e.entriesFile, e.entriesDir, &e.entriesSize))
	err = multierr.Append(err, e.truncateIfShrunkFile(e.dataFile, e.dataDir, &e.dataSize))

	err = multierr.Append(err, e.entriesFile.Fsync())
	err = multierr.Append(err, e.dataFile.Fsync())
	err = multierr.Append(err, e.entriesFile.Close())
	err = multierr.Append(err, e.dataFile.Close())
	return err
}

func (e *Engine) checkClosed(op string) error {
	if e.closed {
		return errors.NewEngineError(nil, errors.ErrorCodeEngineClosed, "engine is closed").WithOperation(op)
	}
	return nil
}

func (e *Engine) wrapIOErr(err error, op, file string, offset int64) error {
	return errors.NewEngineError(err, errors.ErrorCodeIO, "I/O operation failed").
		WithOperation(op).WithFile(file).WithOffset(offset)
}

// truncateIfShrunkFile truncates file to dir's current allocated end if that
// end is lower than the cached size, updating the cache. The magic length is
// the floor: with no blocks, the allocated end is dir.Offset().
func (e *Engine) truncateIfShrunkFile(file filesys.FileIO, dir *blockDir, cachedSize *int64) error {
	end := dir.Offset()
	if last, ok := dir.LastBlock(); ok {
		end = dir.End(last)
	}
	if end < *cachedSize {
		if err := file.Truncate(end); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to truncate file")
		}
		*cachedSize = end
	}
	return nil
}

// freeLiveEntry frees entry's entry block, and its data block too unless
// entry is tagged EntryOnly (meaning the data block is still referenced by
// a newer entry for the same key). Reports whether a mid-file hole resulted
// in either file.
func (e *Engine) freeLiveEntry(entry *keyindex.LiveEntry) (openedHole bool) {
	if !e.entriesDir.Free(entry.EntryBlock) {
		openedHole = true
	}
	if entry.Purging == keyindex.EntryAndData {
		if !e.dataDir.Free(entry.DataBlock) {
			openedHole = true
		}
	}
	return openedHole
}
