package viewstate

import (
	"fmt"
	"math"
	"testing"

	"github.com/steinarvk/whizdex/lib/recquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketSchema = recquery.Schema{
	Fields: map[string]recquery.FieldType{
		"id":       recquery.FieldString,
		"subject":  recquery.FieldString,
		"priority": recquery.FieldString,
		"status":   recquery.FieldString,
	},
	Search:  []string{"id", "subject"},
	Filters: []string{"priority", "status"},
}

func tickets(n int) []recquery.Record {
	var rv []recquery.Record
	for i := 1; i <= n; i++ {
		status := "Open"
		if i%2 == 0 {
			status = "Resolved"
		}
		rv = append(rv, recquery.Record{
			"id":       fmt.Sprintf("TCK-%02d", i),
			"subject":  fmt.Sprintf("Issue %d", i),
			"priority": "High",
			"status":   status,
		})
	}
	return rv
}

func TestClearingSearchKeepsFilters(t *testing.T) {
	v := New(10)
	v.SetSearch("refund")
	v.SetFilter("status", "open")

	v.ClearSearch()
	assert.Equal(t, "", v.Search())
	assert.Equal(t, "open", v.Filter("status"))

	v.SetSearch("refund")
	v.ResetFilters()
	assert.Equal(t, "refund", v.Search())
	assert.Equal(t, recquery.All, v.Filter("status"))
}

func TestToggleSortCycles(t *testing.T) {
	v := New(10)

	v.ToggleSort("created")
	assert.Equal(t, &recquery.Sort{Field: "created"}, v.Sort())
	v.ToggleSort("created")
	assert.Equal(t, &recquery.Sort{Field: "created", Descending: true}, v.Sort())
	v.ToggleSort("created")
	assert.Nil(t, v.Sort())

	v.ToggleSort("created")
	v.ToggleSort("priority")
	assert.Equal(t, &recquery.Sort{Field: "priority"}, v.Sort())
}

func TestParamsIsASnapshot(t *testing.T) {
	v := New(10)
	v.SetFilter("status", "open")
	v.ToggleSort("id")

	p := v.Params()
	p.Filters["status"] = "resolved"
	p.Sort.Descending = true

	assert.Equal(t, "open", v.Filter("status"))
	assert.False(t, v.Sort().Descending)
}

func TestApplyPaginates(t *testing.T) {
	v := New(3)
	v.SetFilter("status", "open")

	page, err := v.Apply(ticketSchema, tickets(10))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "TCK-01", page.Records[0]["id"])

	v.SetPage(2)
	page, err = v.Apply(ticketSchema, tickets(10))
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "TCK-07", page.Records[0]["id"])

	v.SetPage(9)
	page, err = v.Apply(ticketSchema, tickets(10))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
}

func TestChangingSearchResetsPage(t *testing.T) {
	v := New(2)
	v.SetPage(3)
	v.SetSearch("issue")

	page, err := v.Apply(ticketSchema, tickets(6))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestApplyPropagatesPreconditionErrors(t *testing.T) {
	v := New(10)
	v.ToggleSort("nonexistent")

	_, err := v.Apply(ticketSchema, tickets(3))
	assert.Error(t, err)
}

func TestPaginateEdgeCases(t *testing.T) {
	empty := Paginate([]recquery.Record{}, 4, 10)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.PageCount)
	assert.Empty(t, empty.Records)

	all := Paginate(tickets(7), 3, 0)
	assert.Len(t, all.Records, 7)
	assert.Equal(t, 1, all.PageCount)

	huge := Paginate(tickets(2), 1, math.MaxInt)
	assert.Len(t, huge.Records, 2)
	assert.Equal(t, 1, huge.Page)
	assert.Equal(t, 1, huge.PageCount)

	hugePage := Paginate(tickets(5), math.MaxInt, 2)
	assert.Equal(t, 3, hugePage.Page)
	assert.Len(t, hugePage.Records, 1)
}

func TestSetParamsReplacesState(t *testing.T) {
	v := New(2)
	v.SetSearch("refund")
	v.SetFilter("priority", "high")
	v.SetPage(3)

	p := recquery.Params{
		SearchText: "late",
		Filters:    map[string]string{"status": "open"},
		Sort:       &recquery.Sort{Field: "created", Descending: true},
	}
	v.SetParams(p)
	p.Filters["status"] = "resolved"
	p.Sort.Descending = false

	assert.Equal(t, "late", v.Search())
	assert.Equal(t, "open", v.Filter("status"))
	assert.Equal(t, recquery.All, v.Filter("priority"))
	assert.Equal(t, &recquery.Sort{Field: "created", Descending: true}, v.Sort())

	page, err := v.Apply(ticketSchema, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}
