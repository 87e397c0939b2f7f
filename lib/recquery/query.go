package recquery

import (
	"sort"
	"strings"
	"time"

	"github.com/steinarvk/whizdex/lib/dexerror"
)

// All is the filter selection that places no restriction on its key.
const All = "all"

type Sort struct {
	Field      string
	Descending bool
}

type Params struct {
	SearchText string
	Filters    map[string]string
	Sort       *Sort
}

type activeFilter struct {
	field string
	value string
}

// CompiledQuery is a validated, normalized form of Params for one schema.
// It holds no mutable state and may be run concurrently.
type CompiledQuery struct {
	schema   Schema
	search   string
	filters  []activeFilter
	sort     *Sort
	sortType FieldType
}

// Compile validates params against schema. An undeclared sort field is a
// precondition error; filter keys the schema does not declare are ignored.
func Compile(schema Schema, params Params) (*CompiledQuery, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	f := newFolder()

	cq := &CompiledQuery{
		schema: schema,
		search: f.fold(strings.TrimSpace(params.SearchText)),
	}

	for key, value := range params.Filters {
		if !schema.HasFilter(key) {
			continue
		}
		value = f.fold(strings.TrimSpace(value))
		if value == "" || value == All {
			continue
		}
		cq.filters = append(cq.filters, activeFilter{field: key, value: value})
	}
	sort.Slice(cq.filters, func(i, j int) bool {
		return cq.filters[i].field < cq.filters[j].field
	})

	if params.Sort != nil {
		if params.Sort.Field == "" {
			return nil, dexerror.Precondition("empty_sort_field", "", "sort field is empty")
		}
		t, ok := schema.FieldType(params.Sort.Field)
		if !ok {
			return nil, dexerror.Precondition("unknown_sort_field", params.Sort.Field, "sort field is not declared")
		}
		s := *params.Sort
		cq.sort = &s
		cq.sortType = t
	}

	return cq, nil
}

func (q *CompiledQuery) matchesSearch(f *folder, r Record) bool {
	if q.search == "" {
		return true
	}
	for _, field := range q.schema.Search {
		v, ok := lookup(r, field)
		if !ok {
			continue
		}
		if strings.Contains(f.fold(stringify(v)), q.search) {
			return true
		}
	}
	return false
}

func (q *CompiledQuery) matchesFilters(f *folder, r Record) bool {
	for _, filter := range q.filters {
		v, ok := lookup(r, filter.field)
		if !ok {
			return false
		}
		if f.fold(strings.TrimSpace(stringify(v))) != filter.value {
			return false
		}
	}
	return true
}

type sortKey struct {
	present bool
	s       string
	n       float64
	t       time.Time
}

func (q *CompiledQuery) sortKeyFor(f *folder, r Record) sortKey {
	v, ok := lookup(r, q.sort.Field)
	if !ok {
		return sortKey{}
	}
	switch q.sortType {
	case FieldNumber:
		n, ok := asNumber(v)
		return sortKey{present: ok, n: n}
	case FieldDate:
		t, ok := asTime(v)
		return sortKey{present: ok, t: t}
	default:
		return sortKey{present: true, s: f.fold(stringify(v))}
	}
}

func (q *CompiledQuery) compareKeys(a, b sortKey) int {
	switch q.sortType {
	case FieldNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case FieldDate:
		return a.t.Compare(b.t)
	default:
		return strings.Compare(a.s, b.s)
	}
}

// Run applies search, then filters, then the optional stable sort. The
// result is always a new, non-nil slice.
func (q *CompiledQuery) Run(records []Record) []Record {
	f := newFolder()

	rv := make([]Record, 0, len(records))
	for _, r := range records {
		if !q.matchesSearch(f, r) {
			continue
		}
		if !q.matchesFilters(f, r) {
			continue
		}
		rv = append(rv, r)
	}

	if q.sort == nil || len(rv) < 2 {
		return rv
	}

	type keyed struct {
		key    sortKey
		record Record
	}
	entries := make([]keyed, len(rv))
	for i, r := range rv {
		entries[i] = keyed{key: q.sortKeyFor(f, r), record: r}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].key, entries[j].key
		if !a.present || !b.present {
			// Missing values go last regardless of direction.
			return a.present && !b.present
		}
		c := q.compareKeys(a, b)
		if q.sort.Descending {
			return c > 0
		}
		return c < 0
	})

	for i, e := range entries {
		rv[i] = e.record
	}
	return rv
}

// Query returns the records matching params, in the requested order.
func Query(schema Schema, records []Record, params Params) ([]Record, error) {
	cq, err := Compile(schema, params)
	if err != nil {
		return nil, err
	}
	return cq.Run(records), nil
}
