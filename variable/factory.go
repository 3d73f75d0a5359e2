package variable

// Factory constructs a fresh, undefined Variable of a column's declared
// type. ClassInfo registration assigns one Factory per column; the Store
// calls it whenever a raw value needs wrapping (identity-map key
// normalization, hydration, bulk-set literal coercion).
type Factory func() Variable

// FromDB is a convenience that builds a Variable via factory and
// immediately sets it from a database-sourced raw value.
func FromDB(factory Factory, raw any) (Variable, error) {
	v := factory()
	if err := v.Set(raw, true); err != nil {
		return nil, err
	}
	return v, nil
}

// Factories for the built-in scalar types, ready to assign to columns.
var (
	Int    Factory = func() Variable { return NewIntVariable() }
	String Factory = func() Variable { return NewStringVariable() }
	Bool   Factory = func() Variable { return NewBoolVariable() }
	Float  Factory = func() Variable { return NewFloatVariable() }
	Time   Factory = func() Variable { return NewTimeVariable() }
	UUID   Factory = func() Variable { return NewUUIDVariable() }
	ULID   Factory = func() Variable { return NewULIDVariable() }
	Bytes  Factory = func() Variable { return NewBytesVariable() }
)
