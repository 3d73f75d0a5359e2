package variable

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDVariable tracks a UUID-typed primary or foreign key. Comparison and
// coercion between uuid.UUID, string, and []byte forms mirrors the
// teacher's compareIDs UUID fast path.
type UUIDVariable struct {
	base
}

func NewUUIDVariable() *UUIDVariable {
	return &UUIDVariable{base: newBase(func(a, b any) bool { return a.(uuid.UUID) == b.(uuid.UUID) })}
}

func (v *UUIDVariable) Set(value any, fromDB bool) error {
	if value == nil {
		v.set(nil, fromDB)
		return nil
	}
	switch u := value.(type) {
	case uuid.UUID:
		v.set(u, fromDB)
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	case []byte:
		parsed, err := uuid.ParseBytes(u)
		if err != nil {
			return err
		}
		v.set(parsed, fromDB)
	default:
		return fmt.Errorf("stormgo/variable: cannot convert %T to uuid.UUID", value)
	}
	return nil
}

func (v *UUIDVariable) Copy() Variable {
	c := *v
	return &c
}
