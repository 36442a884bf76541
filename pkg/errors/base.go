package errors

// baseError is the foundation every domain error type in this package embeds.
// It carries the wrapped cause, a human-readable message, a machine-readable
// ErrorCode, and an optional bag of structured details, so callers can chain
// errors without losing the context captured at the point of failure.
type baseError struct {
	cause   error          // The underlying error, if any, for errors.Is/As.
	message string         // The message surfaced to callers and logs.
	code    ErrorCode      // Machine-readable category for this failure.
	details map[string]any // Extra structured context, lazily allocated.
}

// NewBaseError creates a baseError wrapping err with the given code and
// message. Domain error constructors delegate here.
func NewBaseError(err error, code ErrorCode, msg string) *baseError {
	return &baseError{cause: err, code: code, message: msg}
}

// WithMessage replaces the error message, for errors built in stages.
func (be *baseError) WithMessage(msg string) *baseError {
	be.message = msg
	return be
}

// WithCode replaces the error code.
func (be *baseError) WithCode(code ErrorCode) *baseError {
	be.code = code
	return be
}

// WithDetail attaches one structured detail, allocating the details map on
// first use. Typical keys are operations, byte offsets, and suggestions.
func (be *baseError) WithDetail(key string, value any) *baseError {
	if be.details == nil {
		be.details = make(map[string]any)
	}
	be.details[key] = value
	return be
}

// Error implements the error interface.
func (b *baseError) Error() string {
	return b.message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (b *baseError) Unwrap() error {
	return b.cause
}

// Code returns the machine-readable category of this error.
func (b *baseError) Code() ErrorCode {
	return b.code
}

// Details returns the structured detail map. The returned map is the
// internal one; callers must treat it as read-only.
func (b *baseError) Details() map[string]any {
	return b.details
}
