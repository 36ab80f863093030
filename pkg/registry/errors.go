package registry

import "errors"

// ErrUnknownSchema means no command type is registered under the requested
// schema URN.
var ErrUnknownSchema = errors.New("registry: unknown schema")

// MalformedPayload wraps the decode error that occurred while unmarshaling
// a command's JSON payload into its registered type.
type MalformedPayload struct {
	Cause error
}

func (e *MalformedPayload) Error() string { return "registry: malformed payload: " + e.Cause.Error() }
func (e *MalformedPayload) Unwrap() error { return e.Cause }
