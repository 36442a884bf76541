// Package options provides the functional-options configuration surface for
// opening a store: the data folder, the reclaim delay, and the narrow
// collaborators (hasher, clock, file I/O, logger) the engine consumes from
// its host.
package options

import (
	"strings"

	"github.com/iamNilotpal/emberstore/pkg/clock"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
	"github.com/iamNilotpal/emberstore/pkg/hasher"
	"go.uber.org/zap"
)

// FileOpener opens (creating if necessary) the FileIO backing one of the
// store's two files. It exists so tests can inject pkg/filesys.MemFile
// instances instead of touching the real filesystem.
type FileOpener func(path string) (filesys.FileIO, error)

// Options holds a store's fully-resolved configuration after every
// OptionFunc has run.
type Options struct {
	// Folder is the directory containing entries.db and data.db. Required;
	// an empty Folder is rejected with an invalid-configuration error.
	Folder string

	// ReclaimDelayMillis is how long a superseded entry waits before its
	// blocks are freed. Zero suppresses the wall clock and reclaims inline.
	ReclaimDelayMillis int64

	// Hasher computes the 16-byte digest over entry body and data record
	// bytes.
	Hasher hasher.Hasher

	// Clock provides the reclamation timer's wall clock and scheduling.
	Clock clock.Clock

	// Logger receives structured diagnostics from load, compaction, and
	// reclamation.
	Logger *zap.SugaredLogger

	// OpenFile opens a FileIO by path.
	OpenFile FileOpener
}

// OptionFunc modifies an in-progress Options during Open.
type OptionFunc func(*Options)

// WithFolder sets the directory the store's two files live in. A blank or
// all-whitespace folder is ignored, leaving the prior (likely invalid, and
// ultimately rejected) value in place.
func WithFolder(folder string) OptionFunc {
	return func(o *Options) {
		folder = strings.TrimSpace(folder)
		if folder != "" {
			o.Folder = folder
		}
	}
}

// WithReclaimDelay sets the reclamation delay in milliseconds. Negative
// values are clamped to 0, which means reclaim inline with no wall clock.
func WithReclaimDelay(millis int64) OptionFunc {
	return func(o *Options) {
		if millis < 0 {
			millis = 0
		}
		o.ReclaimDelayMillis = millis
	}
}

// WithHasher overrides the digest collaborator, e.g. for tests that want a
// cheap non-cryptographic stand-in.
func WithHasher(h hasher.Hasher) OptionFunc {
	return func(o *Options) { o.Hasher = h }
}

// WithClock overrides the wall clock and timer collaborator, e.g. with
// pkg/clock.Fake for deterministic reclamation tests.
func WithClock(c clock.Clock) OptionFunc {
	return func(o *Options) { o.Clock = c }
}

// WithFileIO overrides how the store's two files are opened, e.g. with an
// opener backed by pkg/filesys.MemFile for filesystem-free tests.
func WithFileIO(opener FileOpener) OptionFunc {
	return func(o *Options) { o.OpenFile = opener }
}

// WithLogger overrides the structured logger.
func WithLogger(l *zap.SugaredLogger) OptionFunc {
	return func(o *Options) { o.Logger = l }
}
