package recquery

import (
	"fmt"
	"sort"

	"github.com/steinarvk/whizdex/lib/dexerror"
)

// Record is one row of display data: a flat mapping from field name to a
// scalar value. The engine never modifies records it is given.
type Record map[string]interface{}

// FieldType decides how a field compares when sorted.
type FieldType string

const (
	FieldString = FieldType("string")
	FieldNumber = FieldType("number")
	FieldDate   = FieldType("date")
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldDate:
		return true
	}
	return false
}

// Schema declares, for one collection, the type of every field that can be
// sorted on, and which of those fields take part in search and filtering.
type Schema struct {
	Name    string
	Fields  map[string]FieldType
	Search  []string
	Filters []string
}

// FieldType returns the declared type of field, and false if it is undeclared.
func (s Schema) FieldType(field string) (FieldType, bool) {
	t, ok := s.Fields[field]
	return t, ok
}

// HasFilter reports whether key is declared as a filter.
func (s Schema) HasFilter(key string) bool {
	for _, f := range s.Filters {
		if f == key {
			return true
		}
	}
	return false
}

// FieldNames returns the declared field names in sorted order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Schema) Validate() error {
	for _, name := range s.FieldNames() {
		if name == "" {
			return dexerror.Precondition("empty_field_name", name, "schema declares an empty field name")
		}
		if t := s.Fields[name]; !t.Valid() {
			return dexerror.New(
				dexerror.WithKind(dexerror.KindPrecondition),
				dexerror.WithErrorID("invalid_field_type"),
				dexerror.WithPublicMessage(fmt.Sprintf("field %q has unknown type %q", name, t)),
				dexerror.WithPublicData("field", name),
				dexerror.WithPublicData("type", string(t)),
			)
		}
	}

	for _, name := range s.Search {
		if _, ok := s.Fields[name]; !ok {
			return dexerror.Precondition("undeclared_search_field", name, "search field is not declared")
		}
	}

	for _, name := range s.Filters {
		if _, ok := s.Fields[name]; !ok {
			return dexerror.Precondition("undeclared_filter_field", name, "filter field is not declared")
		}
	}

	return nil
}
