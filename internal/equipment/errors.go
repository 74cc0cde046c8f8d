package equipment

import "errors"

// ClientError marks a domain violation whose message is safe and useful to
// return verbatim to the caller. Anything else that escapes the store is
// internal and must not leak over the wire.
type ClientError struct {
	msg string
}

func (e *ClientError) Error() string { return e.msg }

// NewClientError wraps msg as a client-facing error.
func NewClientError(msg string) *ClientError {
	return &ClientError{msg: msg}
}

// IsClientError reports whether err (or anything it wraps) is client-facing.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
