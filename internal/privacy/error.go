package privacy

// SanitizedError pairs an error with a scrubbed message. Error() returns the
// scrubbed form so the value is safe to log or report, while Unwrap keeps the
// original chain intact for errors.Is and errors.As.
type SanitizedError struct {
	original     error
	sanitizedMsg string
}

// Error returns the scrubbed error message.
func (e *SanitizedError) Error() string {
	return e.sanitizedMsg
}

// Unwrap returns the original error.
func (e *SanitizedError) Unwrap() error {
	return e.original
}

// WrapError runs ScrubMessage over an error's message and returns an error
// whose Error() is the scrubbed text. Returns nil for a nil input.
//
//	if err := store.Open(path); err != nil {
//	    log.Error("journal open failed", "error", privacy.WrapError(err))
//	}
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &SanitizedError{
		original:     err,
		sanitizedMsg: ScrubMessage(err.Error()),
	}
}
