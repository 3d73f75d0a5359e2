// Package variable implements Storm-Go's change-tracked value cell, the
// external "Variable" collaborator described by the core Store/ResultSet
// spec: a typed cell that remembers whether it has a value at all, what
// its value was at the last checkpoint, and whether it has changed since.
package variable

import "fmt"

// state is the tri-state replacement for the "undefined" sentinel used by
// the Python original to distinguish "no value" from a real nil.
type state int

const (
	stateUnset state = iota
	stateNull
	stateValue
)

// Variable is a typed, change-tracked cell. Implementations wrap a concrete
// Go type (int64, string, bool, float64, time.Time, uuid.UUID, ...).
type Variable interface {
	// Get returns the current value, or nil if Null or Unset.
	Get() any
	// Set assigns a new value. fromDB marks the value as having arrived
	// from the database rather than from application code; from-db sets
	// still update the checkpoint baseline immediately (no pending change).
	Set(value any, fromDB bool) error
	// IsDefined reports whether the cell holds Null or Value (not Unset).
	IsDefined() bool
	// HasChanged reports whether Get() differs from the last Checkpoint.
	HasChanged() bool
	// Copy returns a value-equal snapshot, independent of further
	// mutation of the receiver. Used to build identity-map keys.
	Copy() Variable
	// Checkpoint records the current value as the new change-tracking
	// baseline.
	Checkpoint()
}

// base provides the tri-state bookkeeping shared by every concrete
// Variable type; concrete types embed it and supply type-specific
// equality via the equalFunc passed to newBase.
type base struct {
	st        state
	value     any
	checkSt   state
	checkVal  any
	equal     func(a, b any) bool
}

func newBase(equal func(a, b any) bool) base {
	return base{equal: equal}
}

func (b *base) Get() any {
	if b.st != stateValue {
		return nil
	}
	return b.value
}

func (b *base) set(value any, fromDB bool) {
	if value == nil {
		b.st = stateNull
		b.value = nil
	} else {
		b.st = stateValue
		b.value = value
	}
	if fromDB {
		b.checkSt = b.st
		b.checkVal = b.value
	}
}

func (b *base) IsDefined() bool {
	return b.st != stateUnset
}

func (b *base) HasChanged() bool {
	if b.st != b.checkSt {
		return true
	}
	if b.st != stateValue {
		return false
	}
	return !b.equal(b.value, b.checkVal)
}

func (b *base) Checkpoint() {
	b.checkSt = b.st
	b.checkVal = b.value
}

func (b base) String() string {
	switch b.st {
	case stateUnset:
		return "<unset>"
	case stateNull:
		return "<null>"
	default:
		return fmt.Sprintf("%v", b.value)
	}
}
