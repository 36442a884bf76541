package errors

// ValidationError describes rejected caller input: a bad configuration value
// or a malformed argument. It embeds baseError and adds which field failed,
// which rule it violated, and what a valid value would have looked like, so
// callers can correct the input programmatically.
type ValidationError struct {
	*baseError
	field    string // The field or parameter that failed validation.
	rule     string // The violated rule, e.g. "required" or "range".
	provided any    // The value the caller actually supplied.
	expected any    // What a valid value would have been.
}

// NewValidationError creates a validation-specific error wrapping err.
func NewValidationError(err error, code ErrorCode, msg string) *ValidationError {
	return &ValidationError{baseError: NewBaseError(err, code, msg)}
}

// WithDetail attaches one structured detail, preserving the ValidationError
// type for chaining.
func (ve *ValidationError) WithDetail(key string, value any) *ValidationError {
	ve.baseError.WithDetail(key, value)
	return ve
}

// WithField records which field or parameter failed validation.
func (ve *ValidationError) WithField(field string) *ValidationError {
	ve.field = field
	return ve
}

// WithRule records which validation rule was violated.
func (ve *ValidationError) WithRule(rule string) *ValidationError {
	ve.rule = rule
	return ve
}

// WithProvided records the value the caller supplied.
func (ve *ValidationError) WithProvided(value any) *ValidationError {
	ve.provided = value
	return ve
}

// WithExpected records what a valid value would have been.
func (ve *ValidationError) WithExpected(value any) *ValidationError {
	ve.expected = value
	return ve
}

// Field returns the field or parameter that failed validation.
func (ve *ValidationError) Field() string {
	return ve.field
}

// Rule returns the validation rule that was violated.
func (ve *ValidationError) Rule() string {
	return ve.rule
}

// Provided returns the value the caller supplied.
func (ve *ValidationError) Provided() any {
	return ve.provided
}

// Expected returns what a valid value would have been.
func (ve *ValidationError) Expected() any {
	return ve.expected
}
