package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezakhademix/stormgo/variable"
)

// ClassInfo is the static per-class descriptor spec.md §3 requires: table
// name, ordered columns, ordered primary-key columns, and each primary
// key's position within Columns (primary_key_pos).
type ClassInfo struct {
	Type          reflect.Type
	Table         string
	Columns       []string
	PrimaryKey    []string
	PrimaryKeyPos []int
	fieldByColumn map[string]*fieldInfo
	factory       func() any
}

type fieldInfo struct {
	structName string
	column     string
	index      []int
	isPrimary  bool
	isAuto     bool
	varFactory variable.Factory
}

// FieldIndex returns the reflect struct-field path for a column, for use
// with reflect.Value.FieldByIndex.
func (ci *ClassInfo) FieldIndex(column string) ([]int, bool) {
	f, ok := ci.fieldByColumn[column]
	if !ok {
		return nil, false
	}
	return f.index, true
}

// VariableFactory returns the Variable constructor registered for column.
func (ci *ClassInfo) VariableFactory(column string) (variable.Factory, bool) {
	f, ok := ci.fieldByColumn[column]
	if !ok {
		return nil, false
	}
	return f.varFactory, true
}

// IsAuto reports whether column is a database-assigned value (e.g. an
// auto-increment primary key) never sent on Insert.
func (ci *ClassInfo) IsAuto(column string) bool {
	f, ok := ci.fieldByColumn[column]
	return ok && f.isAuto
}

// HasColumn reports whether column is a registered column of ci.
func (ci *ClassInfo) HasColumn(column string) bool {
	_, ok := ci.fieldByColumn[column]
	return ok
}

// ColumnDescriptor is the printable shape of one column, for
// cmd/stormgo-inspect's schema listing.
type ColumnDescriptor struct {
	Column    string
	GoField   string
	IsPrimary bool
	IsAuto    bool
}

// ColumnDescriptors returns ci's columns, in declared order, as
// printable descriptors.
func (ci *ClassInfo) ColumnDescriptors() []ColumnDescriptor {
	out := make([]ColumnDescriptor, len(ci.Columns))
	for i, col := range ci.Columns {
		f := ci.fieldByColumn[col]
		out[i] = ColumnDescriptor{Column: col, GoField: f.structName, IsPrimary: f.isPrimary, IsAuto: f.isAuto}
	}
	return out
}

// Lookup returns the ClassInfo registered for obj's concrete type (obj
// may be a pointer or a value), the Go analogue of store.py's
// get_cls_info when called with an instance rather than a class.
func Lookup(obj any) (*ClassInfo, bool) {
	t := reflect.TypeOf(obj)
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	ci, ok := registry[t]
	return ci, ok
}

// New allocates a bare instance of the class, bypassing any user
// constructor — matching store.py's _load_object, which instantiates
// without invoking __init__.
func (ci *ClassInfo) New() any {
	return reflect.New(ci.Type).Interface()
}

// All returns every ClassInfo registered so far, sorted by table name —
// the registry-introspection hook cmd/stormgo-inspect walks, grounded on
// the teacher's connection.go Schemas map iteration ahead of
// PrintSchematic.
func All() []*ClassInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]*ClassInfo, 0, len(registry))
	for _, ci := range registry {
		out = append(out, ci)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}

var (
	registryMu sync.RWMutex
	registry   = make(map[reflect.Type]*ClassInfo)
)

// tableNamer lets a registered type override DefaultTableName.
type tableNamer interface{ TableName() string }

// primaryKeyNamer is declared for types naming their own primary key,
// but Register does not consult it: primary keys come only from a
// `primary` tag or an untagged field named ID.
type primaryKeyNamer interface{ PrimaryKey() string }

// Register inspects T's struct tags (`storm:"column:...;primary;auto"`)
// and builds its ClassInfo, caching the result keyed by reflect.Type —
// grounded on the teacher's schema.go ParseModel double-checked-locking
// cache, adapted from a per-call generic to an explicit Register so
// callers can supply variable factories for non-default column types
// (UUID/ULID primary keys, custom Variable types).
func Register[T any](factories map[string]variable.Factory) (*ClassInfo, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("stormgo/schema: %s is not a struct", typ)
	}

	registryMu.RLock()
	if ci, ok := registry[typ]; ok {
		registryMu.RUnlock()
		return ci, nil
	}
	registryMu.RUnlock()

	registryMu.Lock()
	defer registryMu.Unlock()
	if ci, ok := registry[typ]; ok {
		return ci, nil
	}

	ci := &ClassInfo{
		Type:          typ,
		fieldByColumn: make(map[string]*fieldInfo),
		factory:       func() any { return reflect.New(typ).Interface() },
	}

	ptrVal := reflect.New(typ)
	if namer, ok := ptrVal.Interface().(tableNamer); ok {
		ci.Table = namer.TableName()
	} else {
		ci.Table = DefaultTableName(typ.Name())
	}

	if err := parseFields(typ, ci, nil, factories); err != nil {
		return nil, err
	}
	if len(ci.PrimaryKey) == 0 {
		return nil, fmt.Errorf("stormgo/schema: %s declares no primary key", typ)
	}

	ci.PrimaryKeyPos = make([]int, len(ci.PrimaryKey))
	for i, pk := range ci.PrimaryKey {
		for pos, col := range ci.Columns {
			if col == pk {
				ci.PrimaryKeyPos[i] = pos
				break
			}
		}
	}

	registry[typ] = ci
	return ci, nil
}

func parseFields(typ reflect.Type, ci *ClassInfo, prefix []int, factories map[string]variable.Factory) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := parseFields(field.Type, ci, append(prefix, i), factories); err != nil {
				return err
			}
			continue
		}

		tag := field.Tag.Get("storm")
		if tag == "-" {
			continue
		}

		column := ToColumnName(field.Name)
		isPrimary := false
		isAuto := false
		var enumMembers []string

		if tag != "" {
			for _, part := range strings.Split(tag, ";") {
				kv := strings.SplitN(part, ":", 2)
				key := strings.TrimSpace(kv[0])
				val := ""
				if len(kv) > 1 {
					val = strings.TrimSpace(kv[1])
				}
				switch key {
				case "column":
					column = val
				case "primary":
					isPrimary = true
				case "auto":
					isAuto = true
				case "enum":
					enumMembers = strings.Split(val, ",")
				}
			}
		}

		if field.Name == "ID" && tag == "" {
			isPrimary = true
			isAuto = true
		}

		if err := ValidateColumnName(column); err != nil {
			return err
		}

		index := append(append([]int{}, prefix...), i)

		var varFactory variable.Factory
		if len(enumMembers) > 0 {
			varFactory = variable.NewEnumVariableFactory(enumMembers...)
		} else {
			varFactory = factoryFor(factories, column, field.Type)
		}

		fi := &fieldInfo{
			structName: field.Name,
			column:     column,
			index:      index,
			isPrimary:  isPrimary,
			isAuto:     isAuto,
			varFactory: varFactory,
		}

		ci.Columns = append(ci.Columns, column)
		ci.fieldByColumn[column] = fi
		if isPrimary {
			ci.PrimaryKey = append(ci.PrimaryKey, column)
		}
	}
	return nil
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// factoryFor picks the Variable factory for a column: an explicit
// override, else a default inferred from the Go field type.
func factoryFor(overrides map[string]variable.Factory, column string, t reflect.Type) variable.Factory {
	if f, ok := overrides[column]; ok {
		return f
	}
	switch {
	case t == timeType:
		return variable.Time
	case t == uuidType:
		return variable.UUID
	case t == bytesType:
		return variable.Bytes
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return variable.Int
	case reflect.String:
		return variable.String
	case reflect.Bool:
		return variable.Bool
	case reflect.Float32, reflect.Float64:
		return variable.Float
	default:
		return variable.String
	}
}
