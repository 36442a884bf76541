package options

import (
	"github.com/iamNilotpal/emberstore/pkg/clock"
	"github.com/iamNilotpal/emberstore/pkg/filesys"
	"github.com/iamNilotpal/emberstore/pkg/hasher"
	"github.com/iamNilotpal/emberstore/pkg/logger"
)

// DefaultReclaimDelayMillis is the reclaim delay used when a caller does not
// specify one: 900,000ms (15 minutes).
const DefaultReclaimDelayMillis int64 = 900_000

func defaultOpenFile(path string) (filesys.FileIO, error) {
	return filesys.OpenFile(path)
}

// NewDefaultOptions returns the baseline configuration applied before any
// OptionFunc runs: the default reclaim delay, a real BLAKE2b-128 hasher, a
// real system clock, OS-backed file I/O, and a development-mode logger.
// Folder is left blank; callers must supply WithFolder.
func NewDefaultOptions() Options {
	return Options{
		ReclaimDelayMillis: DefaultReclaimDelayMillis,
		Hasher:             hasher.New(),
		Clock:              clock.NewSystem(),
		Logger:             logger.New("emberstore"),
		OpenFile:           defaultOpenFile,
	}
}
