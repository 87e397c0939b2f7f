// Package viewstate holds the state a list screen keeps between queries:
// search box text, filter dropdown selections, the sorted column and the
// current page. A ListView is owned by one screen and is not safe for
// concurrent mutation.
package viewstate

import (
	"github.com/steinarvk/whizdex/lib/recquery"
)

type ListView struct {
	search   string
	filters  map[string]string
	sort     *recquery.Sort
	page     int
	pageSize int
}

func New(pageSize int) *ListView {
	return &ListView{
		filters:  map[string]string{},
		page:     1,
		pageSize: pageSize,
	}
}

// SetSearch changes the search text. Filters and sort are left alone; the
// page resets since the result set changes.
func (v *ListView) SetSearch(text string) {
	v.search = text
	v.page = 1
}

func (v *ListView) ClearSearch() {
	v.SetSearch("")
}

func (v *ListView) Search() string {
	return v.search
}

func (v *ListView) SetFilter(key, value string) {
	v.filters[key] = value
	v.page = 1
}

// ClearFilter is the same as selecting "all" for key.
func (v *ListView) ClearFilter(key string) {
	delete(v.filters, key)
	v.page = 1
}

// ResetFilters clears every filter but keeps the search text.
func (v *ListView) ResetFilters() {
	v.filters = map[string]string{}
	v.page = 1
}

func (v *ListView) Filter(key string) string {
	if value, ok := v.filters[key]; ok {
		return value
	}
	return recquery.All
}

// ToggleSort cycles a column through ascending, descending and unsorted.
// Selecting a different column starts it at ascending.
func (v *ListView) ToggleSort(field string) {
	switch {
	case v.sort == nil || v.sort.Field != field:
		v.sort = &recquery.Sort{Field: field}
	case !v.sort.Descending:
		v.sort.Descending = true
	default:
		v.sort = nil
	}
}

func (v *ListView) SetSort(sort *recquery.Sort) {
	if sort == nil {
		v.sort = nil
		return
	}
	s := *sort
	v.sort = &s
}

func (v *ListView) Sort() *recquery.Sort {
	if v.sort == nil {
		return nil
	}
	s := *v.sort
	return &s
}

func (v *ListView) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.page = page
}

// SetParams replaces search, filters and sort with p, e.g. when restoring a
// saved query. The page resets.
func (v *ListView) SetParams(p recquery.Params) {
	v.search = p.SearchText
	v.filters = make(map[string]string, len(p.Filters))
	for k, value := range p.Filters {
		v.filters[k] = value
	}
	v.SetSort(p.Sort)
	v.page = 1
}

// Params returns a snapshot of the state as engine parameters.
func (v *ListView) Params() recquery.Params {
	filters := make(map[string]string, len(v.filters))
	for k, value := range v.filters {
		filters[k] = value
	}
	return recquery.Params{
		SearchText: v.search,
		Filters:    filters,
		Sort:       v.Sort(),
	}
}

type Page struct {
	Records   []recquery.Record
	Total     int
	Page      int
	PageSize  int
	PageCount int
}

// Apply runs the query and cuts out the current page. Pages past the end
// clamp to the last page; a page size of zero or less puts everything on
// one page.
func (v *ListView) Apply(schema recquery.Schema, records []recquery.Record) (*Page, error) {
	result, err := recquery.Query(schema, records, v.Params())
	if err != nil {
		return nil, err
	}
	return Paginate(result, v.page, v.pageSize), nil
}

func Paginate(result []recquery.Record, page, pageSize int) *Page {
	total := len(result)

	if pageSize <= 0 {
		return &Page{
			Records:   result,
			Total:     total,
			Page:      1,
			PageSize:  total,
			PageCount: 1,
		}
	}

	pageCount := total / pageSize
	if total%pageSize != 0 {
		pageCount++
	}
	if pageCount == 0 {
		pageCount = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return &Page{
		Records:   result[start:end],
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		PageCount: pageCount,
	}
}
