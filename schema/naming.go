// Package schema implements Storm-Go's Class/Object metadata external
// collaborator: for a class, the ordered table/column/primary-key
// descriptor (ClassInfo); for an instance, the mutable shadow record
// (ObjectInfo) the Store hooks for change notifications.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var pluralizeClient = pluralize.NewClient()

// DefaultTableName derives a table name from a Go type name the way
// ClassInfo registration falls back to it when no explicit table is
// configured: snake_case the identifier, then pluralize it. Grounded on
// the teacher's configurator.go pluralize wiring, inverted from its
// singularizing use there into the pluralizing direction a table name
// needs.
func DefaultTableName(typeName string) string {
	return pluralizeClient.Plural(strcase.ToSnake(typeName))
}

// ToColumnName converts a Go struct field name to its default snake_case
// column name. Delegates to strcase rather than reimplementing
// acronym-aware snake-casing by hand.
func ToColumnName(fieldName string) string {
	return strcase.ToSnake(fieldName)
}

// ErrInvalidColumnName reports a column/identifier that fails the
// injection-resistant whitelist below.
var ErrInvalidColumnName = errors.New("stormgo/schema: invalid column name")

var dangerousKeywords = []string{
	"union", "select", "insert", "update", "delete", "drop", "truncate",
	"alter", "exec", "execute", "xp_", "sp_",
}

// ValidateColumnName checks that name is safe to splice into SQL
// identifiers position: a strict character whitelist plus a
// word-boundary scan for SQL keywords, grounded on the teacher's
// schema.go ValidateColumnName/dangerousKeywordsMap.
func ValidateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty column name", ErrInvalidColumnName)
	}
	for _, c := range name {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' {
			continue
		}
		return fmt.Errorf("%w: invalid character %q in %q", ErrInvalidColumnName, c, name)
	}

	lower := strings.ToLower(name)
	for _, keyword := range dangerousKeywords {
		if lower == keyword ||
			strings.Contains(lower, "_"+keyword+"_") ||
			strings.HasPrefix(lower, keyword+"_") ||
			strings.HasSuffix(lower, "_"+keyword) {
			return fmt.Errorf("%w: dangerous keyword %q in %q", ErrInvalidColumnName, keyword, name)
		}
	}
	return nil
}
