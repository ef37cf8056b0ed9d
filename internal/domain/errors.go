package domain

import "errors"

// Engine error taxonomy. Everything here is recoverable by the caller
// (re-read, retry, or surface to the human actor); only store-layer
// failures are fatal to an individual request.
var (
	// ErrStaleVersion means the caller's observed version no longer matches
	// the stored one. Re-read and decide whether to retry.
	ErrStaleVersion = errors.New("stale version")

	// ErrInvalidTransition means the requested action's source state does
	// not match the entity's current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrRoleNotPermitted means the acting role may not invoke this
	// transition, e.g. a proposer accepting their own proposal.
	ErrRoleNotPermitted = errors.New("role not permitted")

	// ErrEntityFrozen means a mutating action other than cancel was
	// attempted while the entity is disputed.
	ErrEntityFrozen = errors.New("entity frozen by open dispute")

	// ErrIncompleteEvidence means a handover/return confirmation was
	// submitted without photo references.
	ErrIncompleteEvidence = errors.New("confirmation requires photo evidence")

	// ErrDeadlinePassed means the action targets a confirmation window
	// already flagged expired and policy rejects late acceptance.
	ErrDeadlinePassed = errors.New("confirmation deadline passed")

	// ErrNotFound means no entity exists under the given id.
	ErrNotFound = errors.New("entity not found")

	// ErrStoreUnavailable wraps storage-layer failures. No partial state is
	// ever written when it occurs.
	ErrStoreUnavailable = errors.New("entity store unavailable")
)
