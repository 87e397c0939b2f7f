package dexapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steinarvk/whizdex/lib/recquery"
)

// OrderBy is written as a field name, prefixed with "-" for descending.
type OrderBy struct {
	Field      string
	Descending bool
}

func ParseOrderBy(s string) (*OrderBy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var o OrderBy
	switch s[0] {
	case '-':
		o.Descending = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return nil, fmt.Errorf("order-by has no field name")
	}
	o.Field = s
	return &o, nil
}

func (o OrderBy) String() string {
	if o.Descending {
		return "-" + o.Field
	}
	return o.Field
}

func (o *OrderBy) Sort() *recquery.Sort {
	if o == nil {
		return nil
	}
	return &recquery.Sort{Field: o.Field, Descending: o.Descending}
}

func (o OrderBy) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *OrderBy) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("order-by must be a string: %w", err)
	}
	parsed, err := ParseOrderBy(s)
	if err != nil {
		return err
	}
	if parsed != nil {
		*o = *parsed
	}
	return nil
}
