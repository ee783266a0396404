package gfx

import "errors"

// Sentinel errors returned by the gfx package. Driver failures are not
// sentinels: they are the lower-level error wrapped with context, so
// errors.Is/As reach the driver's own error values through the chain.
var (
	// ErrNotFound is returned when a stale or unknown handle is passed to
	// a cache-backed lookup (command-buffer batches, descriptor-set
	// batches).
	ErrNotFound = errors.New("gfx: resource not found")

	// ErrIllegalState is returned when an operation is requested in a
	// state that forbids it: re-entering recording, using a command
	// buffer of the wrong queue kind, ending a scope twice, or touching
	// a queue family before Setup.
	ErrIllegalState = errors.New("gfx: illegal state")

	// ErrBorrowConflict is returned on re-entrant exclusive access to the
	// shared Context.
	ErrBorrowConflict = errors.New("gfx: context borrow conflict")

	// ErrOutOfRange is returned for arguments outside their valid domain:
	// zero draw counts, zero-sized images, copy regions outside an image,
	// descriptor writes exceeding the declared layout.
	ErrOutOfRange = errors.New("gfx: argument out of range")
)
