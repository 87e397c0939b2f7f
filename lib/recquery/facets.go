package recquery

import (
	"sort"
	"strings"

	"github.com/steinarvk/whizdex/lib/dexerror"
)

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CountBy counts records per value of field, treating values that differ only
// in case as the same. The first spelling seen is the one reported. Results
// are ordered by folded value; records lacking the field are not counted.
func CountBy(schema Schema, records []Record, field string) ([]ValueCount, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if _, ok := schema.FieldType(field); !ok {
		return nil, dexerror.Precondition("unknown_facet_field", field, "field is not declared")
	}

	f := newFolder()

	type entry struct {
		folded string
		ValueCount
	}
	byKey := map[string]*entry{}
	var entries []*entry

	for _, r := range records {
		v, ok := lookup(r, field)
		if !ok {
			continue
		}
		display := strings.TrimSpace(stringify(v))
		if display == "" {
			continue
		}
		key := f.fold(display)
		e, ok := byKey[key]
		if !ok {
			e = &entry{folded: key, ValueCount: ValueCount{Value: display}}
			byKey[key] = e
			entries = append(entries, e)
		}
		e.Count++
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].folded < entries[j].folded
	})

	rv := make([]ValueCount, len(entries))
	for i, e := range entries {
		rv[i] = e.ValueCount
	}
	return rv, nil
}

// DistinctValues lists the values a filter dropdown for field should offer.
func DistinctValues(schema Schema, records []Record, field string) ([]string, error) {
	counts, err := CountBy(schema, records, field)
	if err != nil {
		return nil, err
	}
	rv := make([]string, len(counts))
	for i, c := range counts {
		rv[i] = c.Value
	}
	return rv, nil
}
