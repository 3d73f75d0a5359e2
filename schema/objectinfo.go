package schema

import (
	"fmt"
	"reflect"

	"github.com/rezakhademix/stormgo/variable"
)

// PendingState mirrors the Pending-Add/Pending-Remove markers from
// spec.md §3's lifecycle table.
type PendingState int

const (
	PendingNone PendingState = iota
	PendingAdd
	PendingRemove
)

// EventHub is the tiny per-ObjectInfo callback registry spec.md §9
// Design Notes calls for ("typed channels or callback table... no
// global event dispatch"). Handlers run synchronously on the mutating
// goroutine, per spec.md §5.
type EventHub struct {
	changed []func(column string, v variable.Variable)
	flushed []func()
	added   []func()
}

func (h *EventHub) OnChanged(fn func(column string, v variable.Variable)) {
	h.changed = append(h.changed, fn)
}
func (h *EventHub) OnFlushed(fn func()) { h.flushed = append(h.flushed, fn) }
func (h *EventHub) OnAdded(fn func())   { h.added = append(h.added, fn) }

// EmitChanged notifies every changed-hook that column's Variable has a
// new value. Hooks receive the Variable itself (not old/new scalars) so
// a listener can ask IsDefined() to distinguish "cleared" from "set" —
// the distinction store.py's _variable_changed makes against the
// Undef sentinel.
func (h *EventHub) EmitChanged(column string, v variable.Variable) {
	for _, fn := range h.changed {
		fn(column, v)
	}
}
func (h *EventHub) EmitFlushed() {
	for _, fn := range h.flushed {
		fn()
	}
}
func (h *EventHub) EmitAdded() {
	for _, fn := range h.added {
		fn()
	}
}

// ClearChanged removes every changed-hook, the Go analogue of unhooking
// change notifications on a Ghost transition (spec.md §9 supplemented
// feature: unhook happens before primary_vars is cleared).
func (h *EventHub) ClearChanged() { h.changed = nil }

// ObjectInfo is the per-instance shadow record spec.md §3 describes:
// property bag, per-column Variables, primary-key Variable snapshot,
// a ClassInfo pointer, and an event hub. Owner/Pending are the
// Store-managed bookkeeping fields the Python original keeps as
// dynamic dict entries (info["store"], info["pending"]) — Storm-Go
// gives them typed fields here since Go has no dynamic attribute bag,
// but Owner is deliberately `any` so this package does not import the
// Store type that owns it.
type ObjectInfo struct {
	Obj     any
	ClsInfo *ClassInfo
	Events  EventHub

	Variables   map[string]variable.Variable
	PrimaryVars []variable.Variable

	Owner   any
	Pending PendingState

	snapshot reflect.Value
	hasSnap  bool
}

// NewObjectInfo builds the shadow record for obj (a pointer to a
// registered struct) and wires a fresh, undefined Variable per column
// using ci's factories.
func NewObjectInfo(obj any, ci *ClassInfo) *ObjectInfo {
	info := &ObjectInfo{
		Obj:       obj,
		ClsInfo:   ci,
		Variables: make(map[string]variable.Variable, len(ci.Columns)),
	}
	for _, col := range ci.Columns {
		factory, _ := ci.VariableFactory(col)
		info.Variables[col] = factory()
	}
	info.PrimaryVars = make([]variable.Variable, len(ci.PrimaryKey))
	for i, pk := range ci.PrimaryKey {
		info.PrimaryVars[i] = info.Variables[pk]
	}
	return info
}

// Get reads a column's current live value through its Variable.
func (info *ObjectInfo) Get(column string) any {
	v, ok := info.Variables[column]
	if !ok {
		return nil
	}
	return v.Get()
}

// Set assigns value to column through its Variable and emits a changed
// event, then mirrors the new value into the backing struct field. This
// is the one path application code should use to mutate a tracked
// object's persisted attributes — direct field assignment on the Go
// struct bypasses change tracking entirely, since Go has no attribute
// interception to fall back on (spec.md §9's "dynamic attribute access"
// note has no Go equivalent; Set is the explicit replacement).
func (info *ObjectInfo) Set(column string, value any) error {
	v, ok := info.Variables[column]
	if !ok {
		return fmt.Errorf("stormgo/schema: unknown column %q", column)
	}
	if err := v.Set(value, false); err != nil {
		return err
	}
	info.Events.EmitChanged(column, v)
	index, ok := info.ClsInfo.FieldIndex(column)
	if ok {
		setReflectValue(info.objValue().FieldByIndex(index), v.Get())
	}
	return nil
}

// objValue returns the addressable struct reflect.Value behind Obj.
func (info *ObjectInfo) objValue() reflect.Value {
	v := reflect.ValueOf(info.Obj)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

// SyncFieldsFromVariables writes every column Variable's current value
// into the backing Go struct's fields, so application code reading
// struct fields directly observes Store-driven changes (hydration,
// bulk Set cache patches).
func (info *ObjectInfo) SyncFieldsFromVariables() {
	v := info.objValue()
	for col, variableVal := range info.Variables {
		index, ok := info.ClsInfo.FieldIndex(col)
		if !ok {
			continue
		}
		setReflectValue(v.FieldByIndex(index), variableVal.Get())
	}
}

// SyncVariablesFromFields reads current struct-field values into their
// Variables, from_db=false (application-originated change) — used right
// after New()/Store.Add when a caller has already populated fields
// before attaching. Auto-assigned columns (e.g. an auto-increment
// primary key) are skipped entirely regardless of their Go zero value:
// Go has no way to tell "caller left this at its zero value" apart from
// "caller deliberately set zero", so an auto column's Variable is left
// Unset here and only ever becomes defined via the database's own
// response to Insert (Store.fillMissingValues) — matching spec.md §4.1
// Loading's "fill missing values after insert" contract.
func (info *ObjectInfo) SyncVariablesFromFields() error {
	v := info.objValue()
	for col, variableVal := range info.Variables {
		if info.ClsInfo.IsAuto(col) {
			continue
		}
		index, ok := info.ClsInfo.FieldIndex(col)
		if !ok {
			continue
		}
		field := v.FieldByIndex(index)
		if err := variableVal.Set(field.Interface(), false); err != nil {
			return err
		}
	}
	return nil
}

func setReflectValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
	}
}

// Save snapshots the whole backing struct value, the baseline Restore
// reverts to on rollback — grounded on store.py's ObjectInfo.save/
// restore pair, realized here as a full value copy since Storm-Go's
// domain objects are plain structs rather than dynamic attribute bags.
func (info *ObjectInfo) Save() {
	v := info.objValue()
	info.snapshot = reflect.New(v.Type()).Elem()
	info.snapshot.Set(v)
	info.hasSnap = true
}

// Restore reverts the backing struct to its last Save() snapshot, then
// re-syncs every column Variable from the restored fields with
// from_db=true so each Variable's value and change-tracking checkpoint
// both land on the restored baseline in the same step. Rollback's
// flush-time view of an object (Store.flushOne reads Variables, not
// struct fields, via ChangedColumns/DefinedColumns) must agree with
// what Restore just put back on the struct — without this, a Variable
// edited through Set before the rollback keeps its discarded value with
// its checkpoint still at the pre-edit baseline, so HasChanged() stays
// true and a later flush resurrects the rolled-back value. Unlike
// SyncVariablesFromFields, this does not skip auto-assigned columns:
// those already hold a database-assigned, defined value by the time
// any Save() snapshot worth restoring exists.
func (info *ObjectInfo) Restore() {
	if !info.hasSnap {
		return
	}
	info.objValue().Set(info.snapshot)

	v := info.objValue()
	for _, col := range info.ClsInfo.Columns {
		index, ok := info.ClsInfo.FieldIndex(col)
		if !ok {
			continue
		}
		variableVal, ok := info.Variables[col]
		if !ok {
			continue
		}
		_ = variableVal.Set(v.FieldByIndex(index).Interface(), true)
	}
}

// Checkpoint marks every column Variable's current value as its new
// change-tracking baseline.
func (info *ObjectInfo) Checkpoint() {
	for _, v := range info.Variables {
		v.Checkpoint()
	}
}

// HasDirtyField reports whether any column's Variable has a defined,
// changed value — the plain-dirty-update flush path needs exactly this
// to decide whether an Update is worth emitting.
func (info *ObjectInfo) HasDirtyField() bool {
	for _, v := range info.Variables {
		if v.IsDefined() && v.HasChanged() {
			return true
		}
	}
	return false
}

// ChangedColumns returns columns whose Variable HasChanged() and
// IsDefined(), in ClassInfo column order, for Update statement
// construction.
func (info *ObjectInfo) ChangedColumns() []string {
	var cols []string
	for _, col := range info.ClsInfo.Columns {
		v := info.Variables[col]
		if v.IsDefined() && v.HasChanged() {
			cols = append(cols, col)
		}
	}
	return cols
}

// DefinedColumns returns columns whose Variable IsDefined(), in
// ClassInfo column order, for Insert statement construction.
func (info *ObjectInfo) DefinedColumns() []string {
	var cols []string
	for _, col := range info.ClsInfo.Columns {
		if info.Variables[col].IsDefined() {
			cols = append(cols, col)
		}
	}
	return cols
}

// PrimaryValues returns the current live values of the primary-key
// Variables, in ClassInfo.PrimaryKey order.
func (info *ObjectInfo) PrimaryValues() []any {
	values := make([]any, len(info.PrimaryVars))
	for i, v := range info.PrimaryVars {
		values[i] = v.Get()
	}
	return values
}

// CopyPrimaryVars snapshots each primary Variable via Copy(), the
// identity-map key material — taken so later mutation of the live
// variable does not perturb a key already stored in the map (spec.md
// §3 "Identity-map key").
func (info *ObjectInfo) CopyPrimaryVars() []variable.Variable {
	copies := make([]variable.Variable, len(info.PrimaryVars))
	for i, v := range info.PrimaryVars {
		copies[i] = v.Copy()
	}
	return copies
}
