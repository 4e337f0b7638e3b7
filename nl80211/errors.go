package nl80211

import "errors"

// The proxy collapses every failure into one of three broad kinds so that
// callers can tell a dead socket apart from a garbled frame or from a reply
// that simply doesn't have the expected shape. Transport failures are
// wrapped as-is around the underlying syscall error.
var (
	// ErrNotInitialized is returned whenever a request is attempted before
	// Init has completed successfully. A proxy whose Init failed stays in
	// this state for good: reinitialisation requires a new instance.
	ErrNotInitialized = errors.New("nl80211 proxy not initialised")

	// ErrDecode is returned when received bytes cannot be parsed back into
	// messages: truncated headers, attributes overrunning their declared
	// region, trailing garbage... A corrupted frame is never partially
	// usable, so decoding fails as a whole.
	ErrDecode = errors.New("malformed netlink message")

	// ErrUnexpectedResponse is returned when well-formed replies don't
	// match what was asked for: wrong command, missing attribute, the
	// wrong number of responses or a sequence number belonging to some
	// other request.
	ErrUnexpectedResponse = errors.New("unexpected netlink response")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("nl80211 proxy closed")
)
