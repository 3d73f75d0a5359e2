package variable

import (
	"fmt"

	"github.com/oklog/ulid"
)

// ULIDVariable tracks a ULID-typed surrogate key: an alternative to
// UUIDVariable for applications that want lexicographically sortable,
// time-ordered identifiers. Given a home here per SPEC_FULL.md's DOMAIN
// STACK notes: the teacher's go.mod carries github.com/oklog/ulid as an
// indirect dependency with no call site, since the Variable abstraction is
// exactly the extension point a monotonic key type belongs in.
type ULIDVariable struct {
	base
}

func NewULIDVariable() *ULIDVariable {
	return &ULIDVariable{base: newBase(func(a, b any) bool { return a.(ulid.ULID) == b.(ulid.ULID) })}
}

func (v *ULIDVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch u := value.(type) {
	case ulid.ULID:
		v.set(u, fromDB)
	case string:
		parsed, err := ulid.ParseStrict(u)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	case []byte:
		var parsed ulid.ULID
		if err := parsed.UnmarshalText(u); err != nil {
			return err
		}
		v.set(parsed, fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to ulid.ULID", value)
	}
	return nil
}

func (v *ULIDVariable) Copy() Variable {
	c := *v
	return &c
}
