package messaging

import "errors"

// Sentinel errors for the transport/protocol/config taxonomy of spec.md §7.
var (
	// ErrUnreachable is returned by Connect when the peer could not be
	// reached after MaxRetries attempts.
	ErrUnreachable = errors.New("unreachable")
	// ErrClosed is returned by Send when the channel is not open.
	ErrClosed = errors.New("closed")
	// ErrConfigMismatch is returned by CheckSchemeAgreement/Connect when the
	// URI scheme disagrees with whether TLS is configured, and by
	// ParseTLSMode/NewTLSConfig for an unknown or undefined TLS mode.
	ErrConfigMismatch = errors.New("config_mismatch")
	// ErrProtocolMismatch is returned when a message's protocol version
	// does not match ProtocolVersion.
	ErrProtocolMismatch = errors.New("protocol_mismatch")
	// ErrUnknownMsgType is returned when an envelope carries a msg_type
	// this peer does not recognise.
	ErrUnknownMsgType = errors.New("unknown_msg_type")
)
