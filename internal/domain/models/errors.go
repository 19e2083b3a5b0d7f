package models

import "errors"

// Named failures of the core. No error condition is ever folded into an
// incorrect numeric result; callers match these with errors.Is.
var (
	// ErrOutOfOrderEvent is returned when a bar or reading is older than the
	// last accepted timestamp for its stream. The event is discarded and
	// window state is unchanged.
	ErrOutOfOrderEvent = errors.New("event timestamp older than last accepted for stream")

	// ErrStateConflict is returned when a trade open is attempted for a
	// signal that already has an OPEN trade. The existing trade is never
	// overwritten.
	ErrStateConflict = errors.New("signal already references an open trade")

	// ErrInvalidPrice is returned when a close would divide by a
	// non-positive or non-finite price. The trade stays OPEN and is retried
	// on the next expiry sweep.
	ErrInvalidPrice = errors.New("price must be positive and finite")
)
