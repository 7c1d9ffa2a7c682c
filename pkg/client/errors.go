package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation needs an active session.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionFailed is the terminal error after the reconnect budget is
	// exhausted.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrServerRejectedConnection distinguishes an immediate EOF during the
	// handshake from a generic I/O failure. The usual cause is pointing the
	// client at the wrong host or port, or a gateway that does not trust this
	// origin.
	ErrServerRejectedConnection = errors.New(
		"the server may be rejecting connections from this host: check the API port and trusted IP configuration")

	// ErrEndOfStream signals graceful stream termination. It is a sentinel
	// outcome, not a failure.
	ErrEndOfStream = errors.New("end of stream")

	// ErrUnexpectedResponse is returned by a decoder handed a message type it
	// does not accept. Subscriptions retry past these up to a bounded ceiling
	// to tolerate benign out-of-band traffic on shared channels.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrCancelUnavailable is returned when a cancel message cannot be built,
	// typically because the stream has no request id.
	ErrCancelUnavailable = errors.New("subscription cannot be cancelled")
)

// ServerError is the server's own error message for a request, carrying its
// correlation id and numeric code. Codes in the warning range never surface
// through this type; they are logged as notices instead.
type ServerError struct {
	RequestID int
	Code      int
	Message   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d for request %d: %s", e.Code, e.RequestID, e.Message)
}
