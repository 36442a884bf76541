package errors

// EngineError describes a failure in the key/value layer: Set/Get/Delete,
// load/recovery, reclamation, or compaction. It embeds baseError and adds
// the key, operation, file, and byte offset involved, which is the context
// needed to diagnose consistency problems after the fact.
type EngineError struct {
	*baseError
	key       string // The key being processed, when applicable.
	operation string // "Set", "Get", "Delete", "Load", "Compact", ...
	file      string // "entries" or "data", when applicable.
	offset    int64  // Byte offset within the file, -1 when not applicable.
}

// NewEngineError creates an engine-specific error wrapping err.
func NewEngineError(err error, code ErrorCode, msg string) *EngineError {
	return &EngineError{baseError: NewBaseError(err, code, msg), offset: -1}
}

// WithDetail attaches one structured detail, preserving the EngineError
// type for chaining.
func (ee *EngineError) WithDetail(key string, value any) *EngineError {
	ee.baseError.WithDetail(key, value)
	return ee
}

// WithKey records which key was being processed.
func (ee *EngineError) WithKey(key string) *EngineError {
	ee.key = key
	return ee
}

// WithOperation records which engine operation was running.
func (ee *EngineError) WithOperation(operation string) *EngineError {
	ee.operation = operation
	return ee
}

// WithFile records which on-disk file ("entries" or "data") was involved.
func (ee *EngineError) WithFile(file string) *EngineError {
	ee.file = file
	return ee
}

// WithOffset records the byte offset within the file where the problem
// happened.
func (ee *EngineError) WithOffset(offset int64) *EngineError {
	ee.offset = offset
	return ee
}

// Key returns the key that was being processed.
func (ee *EngineError) Key() string { return ee.key }

// Operation returns the engine operation that was running.
func (ee *EngineError) Operation() string { return ee.operation }

// File returns the file the error is associated with.
func (ee *EngineError) File() string { return ee.file }

// Offset returns the byte offset associated with the error, or -1.
func (ee *EngineError) Offset() int64 { return ee.offset }

// CorruptionError describes a single entry that failed validation during
// load and was skipped. It is informational: load never fails because of
// one of these, but recovery logs each one so operators can see how many
// entries were dropped.
type CorruptionError struct {
	*baseError
	entryLocation int64
	reason        string
}

// NewCorruptionError creates a per-entry corruption error.
func NewCorruptionError(err error, entryLocation int64, reason string) *CorruptionError {
	return &CorruptionError{
		baseError:     NewBaseError(err, ErrorCodeEntryCorrupted, "entry failed validation during load"),
		entryLocation: entryLocation,
		reason:        reason,
	}
}

// EntryLocation returns the byte offset of the entry that was skipped.
func (ce *CorruptionError) EntryLocation() int64 { return ce.entryLocation }

// Reason returns a short description of what failed, e.g. "entry digest
// mismatch".
func (ce *CorruptionError) Reason() string { return ce.reason }
