// Package logger wraps zap construction for the store, so every subsystem
// logs through the same structured, leveled logger instead of reaching for
// fmt.Printf. Services are distinguished by name rather than by package so
// that log output can be filtered per component (engine, directory, codec).
package logger

import (
	"go.uber.org/zap"
)

// New builds a development-friendly, human-readable *zap.SugaredLogger tagged
// with the given service name. Errors constructing the underlying zap logger
// are treated as unrecoverable (they only happen from misconfiguration, never
// from runtime conditions) and fall back to a no-op logger so callers never
// have to handle a construction error on the hot path.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return log.Sugar().Named(service)
}

// NewNop returns a logger that discards all output, useful for tests that
// don't want to assert on log lines but still need a non-nil logger.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
