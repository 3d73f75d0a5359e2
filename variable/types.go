package variable

import (
	"fmt"
	"strconv"
	"time"
)

// coerceInt mirrors the teacher's setIntField coercion table, adapted to
// return a value instead of writing into a reflect.Value.
func coerceInt(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("stormgo/variable: cannot convert %T to int", value)
	}
}

// IntVariable tracks a 64-bit signed integer column, typically a primary
// key or a plain numeric attribute.
type IntVariable struct {
	base
}

// NewIntVariable constructs an undefined IntVariable.
func NewIntVariable() *IntVariable {
	return &IntVariable{base: newBase(func(a, b any) bool { return a.(int64) == b.(int64) })}
}

func (v *IntVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	i, err := coerceInt(value)
	if err != nil {
		return err
	}
	v.set(i, fromDB)
	return nil
}

func (v *IntVariable) Copy() Variable {
	c := *v
	return &c
}

// StringVariable tracks a text column.
type StringVariable struct {
	base
}

func NewStringVariable() *StringVariable {
	return &StringVariable{base: newBase(func(a, b any) bool { return a.(string) == b.(string) })}
}

func (v *StringVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch s := value.(type) {
	case string:
		v.set(s, fromDB)
	case []byte:
		v.set(string(s), fromDB)
	case fmt.Stringer:
		v.set(s.String(), fromDB)
	default:
		v.set(fmt.Sprintf("%v", value), fromDB)
	}
	return nil
}

func (v *StringVariable) Copy() Variable {
	c := *v
	return &c
}

// BoolVariable tracks a boolean column.
type BoolVariable struct {
	base
}

func NewBoolVariable() *BoolVariable {
	return &BoolVariable{base: newBase(func(a, b any) bool { return a.(bool) == b.(bool) })}
}

func (v *BoolVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch b := value.(type) {
	case bool:
		v.set(b, fromDB)
	case int64:
		v.set(b != 0, fromDB)
	case int:
		v.set(b != 0, fromDB)
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	case []byte:
		parsed, err := strconv.ParseBool(string(b))
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to bool", value)
	}
	return nil
}

func (v *BoolVariable) Copy() Variable {
	c := *v
	return &c
}

// FloatVariable tracks a floating-point column.
type FloatVariable struct {
	base
}

func NewFloatVariable() *FloatVariable {
	return &FloatVariable{base: newBase(func(a, b any) bool { return a.(float64) == b.(float64) })}
}

func (v *FloatVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch f := value.(type) {
	case float64:
		v.set(f, fromDB)
	case float32:
		v.set(float64(f), fromDB)
	case int64:
		v.set(float64(f), fromDB)
	case int:
		v.set(float64(f), fromDB)
	case []byte:
		parsed, err := strconv.ParseFloat(string(f), 64)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	case string:
		parsed, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to float64", value)
	}
	return nil
}

func (v *FloatVariable) Copy() Variable {
	c := *v
	return &c
}

// TimeVariable tracks a timestamp column.
type TimeVariable struct {
	base
}

func NewTimeVariable() *TimeVariable {
	return &TimeVariable{base: newBase(func(a, b any) bool { return a.(time.Time).Equal(b.(time.Time)) })}
}

func (v *TimeVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch t := value.(type) {
	case time.Time:
		v.set(t, fromDB)
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	case []byte:
		parsed, err := time.Parse(time.RFC3339, string(t))
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to time.Time", value)
	}
	return nil
}

func (v *TimeVariable) Copy() Variable {
	c := *v
	return &c
}

// BytesVariable tracks a raw binary (BLOB/bytea) column.
type BytesVariable struct {
	base
}

func NewBytesVariable() *BytesVariable {
	return &BytesVariable{base: newBase(func(a, b any) bool {
		x, y := a.([]byte), b.([]byte)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	})}
}

func (v *BytesVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch b := value.(type) {
	case []byte:
		v.set(b, fromDB)
	case string:
		v.set([]byte(b), fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to []byte", value)
	}
	return nil
}

func (v *BytesVariable) Copy() Variable {
	c := *v
	if c.st == stateValue {
		src := c.value.([]byte)
		cp := make([]byte, len(src))
		copy(cp, src)
		c.value = cp
	}
	return &c
}

// EnumVariable tracks a column restricted to a fixed set of string
// members (e.g. a Postgres ENUM or a MySQL/SQLite string-checked
// column), grounded on the teacher's schema.go Enum field-kind handling.
type EnumVariable struct {
	base
	members map[string]struct{}
}

// NewEnumVariableFactory returns a Factory producing EnumVariables
// restricted to members — the per-column construction ClassInfo
// registration wires for a `storm:"enum:a,b,c"` tag.
func NewEnumVariableFactory(members ...string) func() Variable {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return func() Variable {
		return &EnumVariable{
			base:    newBase(func(a, b any) bool { return a.(string) == b.(string) }),
			members: set,
		}
	}
}

func (v *EnumVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	var s string
	switch raw := value.(type) {
	case string:
		s = raw
	case []byte:
		s = string(raw)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to enum", value)
	}
	if _, ok := v.members[s]; len(v.members) > 0 && !ok {
		return fmt.Errorf("stormgo/variable: %q is not a member of this enum", s)
	}
	v.set(s, fromDB)
	return nil
}

func (v *EnumVariable) Copy() Variable {
	c := *v
	return &c
}
