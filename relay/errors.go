package relay

import "errors"

// Failure categories surfaced to the client as terminal error events.
// Decode failures are deliberately absent: a payload that fails structured
// parsing degrades to raw forwarding and never terminates a session.
var (
	// ErrMethodNotAllowed: wrong HTTP verb on the stream endpoint.
	ErrMethodNotAllowed = errors.New("method not allowed: POST required")

	// ErrMissingCredential: the inbound request carried no authorization
	// header. Token validation itself belongs to the auth layer in front
	// of the relay.
	ErrMissingCredential = errors.New("missing authorization credential")

	// ErrUpstreamKeyMissing: no upstream provider key is configured, so
	// no upstream connection is attempted.
	ErrUpstreamKeyMissing = errors.New("upstream api key not configured")
)
