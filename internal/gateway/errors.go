package gateway

import "errors"

var (
	// ErrAuthentication refuses a connection before any event is processed.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUpstreamLookup means the identity provider could not resolve a token.
	ErrUpstreamLookup = errors.New("identity provider lookup failed")
	// ErrPersistence means the data store rejected a write.
	ErrPersistence = errors.New("persistence failed")
	// ErrProtocol marks a malformed inbound frame.
	ErrProtocol = errors.New("protocol error")
)
