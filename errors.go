package stormgo

import "errors"

// Error taxonomy per spec.md §7 — semantic, not type-name. Most
// returns wrap the sentinel with operation-specific context via
// fmt.Errorf's %w; First/Last return ErrUnordered and One returns
// ErrNotOne unwrapped. Either way callers can errors.Is against the
// bare sentinel.
var (
	// ErrWrongStore: attaching/removing/reloading an object bound to a
	// different (or no) Store when the operation requires attachment.
	ErrWrongStore = errors.New("stormgo: object is bound to a different store")

	// ErrNotFlushed: reloading an object that was never inserted.
	ErrNotFlushed = errors.New("stormgo: object has never been flushed")

	// ErrOrderLoop: flush cannot make progress due to cyclic flush-order
	// edges.
	ErrOrderLoop = errors.New("stormgo: flush order graph contains a cycle")

	// ErrUnordered: First()/Last() on a result set without OrderBy.
	ErrUnordered = errors.New("stormgo: result set has no order_by")

	// ErrNotOne: One() when more than one row qualifies.
	ErrNotOne = errors.New("stormgo: more than one row matched")

	// ErrFeature: unsupported API composition (reorder after slice,
	// tuple cls-spec with Set/Remove/Cached, Last with limit, Values
	// with no columns, named filter without class context, unsupported
	// set-expression).
	ErrFeature = errors.New("stormgo: unsupported operation")
)
