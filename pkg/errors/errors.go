// Package errors defines the structured error taxonomy shared by every layer
// of the store. A failure is never just "something went wrong": each error
// carries a machine-readable ErrorCode, the wrapped cause, and the
// domain-specific context needed to act on it — which field of the
// configuration was rejected, which file and byte offset an I/O failure hit,
// which key and operation the engine was processing.
//
// The taxonomy is a small hierarchy: baseError holds the code, message,
// cause, and detail map common to everything, and three domain types embed
// it. ValidationError covers rejected caller input. StorageError covers
// failures against the entries and data files, with file identity and byte
// offsets. EngineError covers the key/value layer: Set/Get/Delete, load,
// reclamation, and compaction, with the key and operation involved.
// CorruptionError is the odd one out — it describes a single on-disk entry
// that failed validation during load, and is informational rather than
// fatal, because recovery skips the damaged entry and keeps going.
//
// The Classify* helpers at the bottom of this file turn raw OS errors from
// folder creation, file opening, and fsync into StorageErrors with a
// specific code (permission, disk-full, read-only filesystem) where the
// syscall errno allows it, so operators get an actionable category instead
// of a generic I/O failure.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsStorageError reports whether err is, or wraps, a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsEngineError reports whether err is, or wraps, an EngineError.
func IsEngineError(err error) bool {
	var ee *EngineError
	return stdErrors.As(err, &ee)
}

// AsValidationError extracts a ValidationError from err's chain, giving
// access to the failed field, the violated rule, and the provided/expected
// values.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsStorageError extracts a StorageError from err's chain, giving access to
// the file name, path, and byte offset involved.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsEngineError extracts an EngineError from err's chain, giving access to
// the key, operation, file, and offset involved.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if stdErrors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// GetErrorCode returns the ErrorCode carried anywhere in err's chain, or
// ErrorCodeInternal for errors without one. Useful for metrics and alerting
// that group failures by category.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}
	if ee, ok := AsEngineError(err); ok {
		return ee.Code()
	}
	var ce *CorruptionError
	if stdErrors.As(err, &ce) {
		return ce.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails returns the structured detail map carried anywhere in
// err's chain, or an empty map for errors without one.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	if se, ok := AsStorageError(err); ok {
		if details := se.Details(); details != nil {
			return details
		}
	}
	if ee, ok := AsEngineError(err); ok {
		if details := ee.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError turns a failure to create the store folder
// into a StorageError with the most specific code the underlying OS error
// supports.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"Insufficient permissions to create store folder",
		).WithPath(path).
			WithDetail("operation", "directory_creation").
			WithDetail("suggestion", "check directory permissions or run with elevated privileges")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"Insufficient disk space to create store folder",
				).WithPath(path).
					WithDetail("operation", "directory_creation").
					WithDetail("suggestion", "free up disk space or choose a different location")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly,
					"Cannot create store folder on read-only filesystem",
				).WithPath(path).
					WithDetail("operation", "directory_creation").
					WithDetail("suggestion", "remount filesystem with write permissions")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "Failed to create store folder",
	).WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError turns a failure to open one of the store's two
// files into a StorageError with the most specific code the underlying OS
// error supports.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"Insufficient permissions to open store file",
		).WithPath(filePath).
			WithFileName(fileName).
			WithDetail("operation", "file_open").
			WithDetail("suggestion", "check file permissions or run with elevated privileges")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"Insufficient disk space to create store file",
				).WithPath(filePath).
					WithFileName(fileName).
					WithDetail("operation", "file_open").
					WithDetail("suggestion", "free up disk space")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly,
					"Cannot create store file on read-only filesystem",
				).WithPath(filePath).
					WithFileName(fileName).
					WithDetail("operation", "file_open").
					WithDetail("suggestion", "remount filesystem with write permissions")
			}
		}
	}

	return NewStorageError(err, ErrorCodeIO, "Failed to open store file").
		WithPath(filePath).
		WithFileName(fileName).
		WithDetail("operation", "file_open")
}

// ClassifySyncError turns an fsync failure into a StorageError with the
// most specific code the underlying OS error supports. Sync failures are
// the store's durability boundary, so an EIO here is flagged as a possible
// hardware or corruption problem rather than a transient condition.
func ClassifySyncError(err error, fileName string) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"Cannot sync store file: insufficient disk space",
				).WithFileName(fileName).
					WithDetail("operation", "file_sync").
					WithDetail("suggestion", "free up disk space before continuing")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly,
					"Cannot sync store file: filesystem is read-only",
				).WithFileName(fileName).
					WithDetail("operation", "file_sync").
					WithDetail("suggestion", "remount filesystem with write permissions")
			case syscall.EIO:
				return NewStorageError(
					err, ErrorCodeIO,
					"I/O error during file sync - possible hardware or corruption issue",
				).WithFileName(fileName).
					WithDetail("operation", "file_sync").
					WithDetail("severity", "high").
					WithDetail("suggestion", "check filesystem integrity and hardware health")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "Failed to sync store file to disk",
	).WithFileName(fileName).WithDetail("operation", "file_sync")
}
