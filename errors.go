// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import "errors"

// Failure classes shared by every layer of the protocol. Concrete errors
// wrap one of these with %w so callers can match either the specific
// condition or the class with errors.Is.
var (
	// ErrInvalidArgument rejects null identifiers, zero amounts, malformed
	// payloads and other caller mistakes. Never worth retrying.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized rejects a caller lacking the required identity or
	// role, and deliveries arriving over an untrusted peer path.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReplay rejects an identifier that has already been consumed.
	// Expected under at-least-once relay; relays treat it as a no-op.
	ErrReplay = errors.New("already executed")

	// ErrNotConfigured rejects an operation whose required registration
	// (peer, delivery agent, verifier) has not been made yet.
	ErrNotConfigured = errors.New("not configured")

	// ErrPaused rejects state mutation while an administrator has paused
	// the instance. Clears on unpause.
	ErrPaused = errors.New("paused")

	// ErrReentrancy rejects a nested call into a guarded entry point
	// before the outer call has completed.
	ErrReentrancy = errors.New("reentrant call")
)
