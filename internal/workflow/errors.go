package workflow

import "errors"

// Sentinel errors surfaced to the chat and console layers. Callers classify
// them with errors.Is to decide whether a failure aborts one step (an unknown
// item aborts only that scan) or the whole flow (an unknown requester aborts
// the checkout).
var (
	// ErrPersonNotFound means the person id has no row in the people store.
	ErrPersonNotFound = errors.New("person not found")

	// ErrNotVerified means the person exists but has not been approved by an
	// admin yet.
	ErrNotVerified = errors.New("person is not verified")

	// ErrEquipmentNotFound means the equipment id has no registry entry.
	ErrEquipmentNotFound = errors.New("equipment not found")

	// ErrCategoryNotFound means the category id has no registry entry.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrConflictingPending means the equipment already has a pending
	// transfer; the item must be reported as unavailable, never queued.
	ErrConflictingPending = errors.New("equipment has a conflicting pending transfer")

	// ErrBatchResolved means the batch has no pending transfers left: an
	// earlier decision already consumed it. Late admin responses hit this and
	// must be treated as a no-op.
	ErrBatchResolved = errors.New("batch already resolved")

	// ErrNotAuthorized means the acting person lacks the role the operation
	// requires. The action is refused with no partial effect.
	ErrNotAuthorized = errors.New("not authorized")
)
