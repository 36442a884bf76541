package errors

// StorageError describes a failure against one of the store's two on-disk
// files. It embeds baseError and adds the file identity and byte offset
// needed to pinpoint where in a file the problem happened.
type StorageError struct {
	*baseError
	fileName string // "entries.db" or "data.db", when known.
	path     string // Full path of the file involved, when known.
	offset   int64  // Byte offset within the file, -1 when not applicable.
}

// NewStorageError creates a storage-specific error wrapping err.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg), offset: -1}
}

// WithOffset records the byte position where the failure occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// WithFileName records which of the store's files was involved.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath records the full path of the file involved.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// WithDetail attaches one structured detail, preserving the StorageError
// type for chaining.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// Offset returns the byte offset within the file, or -1 when unknown.
func (se *StorageError) Offset() int64 {
	return se.offset
}

// FileName returns which of the store's files was involved.
func (se *StorageError) FileName() string {
	return se.fileName
}

// Path returns the full path of the file involved.
func (se *StorageError) Path() string {
	return se.path
}
