package errors

// ErrorCode is a machine-readable category attached to every error this
// package produces, so callers can branch on failure modes without parsing
// messages.
type ErrorCode string

// Base codes cover failures that are not specific to any one subsystem.
const (
	// ErrorCodeIO covers read, write, fsync, and truncate failures against
	// either of the store's two files.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput marks caller mistakes: bad configuration or
	// malformed arguments, as opposed to system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal marks conditions that indicate a bug in the store
	// itself rather than anything the caller or the host did.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage codes cover the failure modes of the entries and data files.
const (
	// ErrorCodeMagicMismatch means an existing file's 4-byte magic prefix
	// does not match, i.e. the file was not produced by this store.
	ErrorCodeMagicMismatch ErrorCode = "MAGIC_MISMATCH"

	// ErrorCodeEntryCorrupted means a single entry failed version, length,
	// or digest validation during load and was skipped.
	ErrorCodeEntryCorrupted ErrorCode = "ENTRY_CORRUPTED"

	// ErrorCodeHeaderReadFailure means an entry's fixed header could not be
	// read in full during the sequential load scan.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure means the data record an entry points at
	// could not be read back from the data file.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodePermissionDenied means the process lacks filesystem
	// permissions for the store folder or one of its files.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull means the device backing the store folder has run
	// out of space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly means the filesystem holding the store
	// folder is mounted read-only.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Engine codes cover the key/value layer above the two files.
const (
	// ErrorCodeEngineClosed means an operation was attempted after Close.
	ErrorCodeEngineClosed ErrorCode = "ENGINE_CLOSED"
)
