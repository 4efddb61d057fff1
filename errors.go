package mindflow

import "errors"

// ClientError marks a failure caused by the caller's input or credentials.
// The HTTP layer maps it to a 400 response; everything else is a 500.
type ClientError struct {
	msg   string
	cause error
}

// NewClientError creates a ClientError with an optional underlying cause.
func NewClientError(msg string, cause error) *ClientError {
	return &ClientError{msg: msg, cause: cause}
}

func (e *ClientError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *ClientError) Unwrap() error { return e.cause }

// IsClientError reports whether err (or anything it wraps) is a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
