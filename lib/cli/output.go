package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/steinarvk/whizdex/lib/dexapi"
	"github.com/steinarvk/whizdex/lib/flatten"
	"github.com/steinarvk/whizdex/lib/recquery"
	"github.com/steinarvk/whizdex/lib/viewstate"
)

// columns puts the id first and the remaining declared fields after it.
func columns(schema recquery.Schema) []string {
	var rv []string
	if _, ok := schema.Fields[flatten.IDField]; ok {
		rv = append(rv, flatten.IDField)
	}
	for _, name := range schema.FieldNames() {
		if name != flatten.IDField {
			rv = append(rv, name)
		}
	}
	return rv
}

func cell(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func writeTable(w io.Writer, schema recquery.Schema, page *viewstate.Page) error {
	cols := columns(schema)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range page.Records {
		values := make([]string, len(cols))
		for i, c := range cols {
			values[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.Total == 0 {
		_, err := fmt.Fprintln(w, "(no matching records)")
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d matching record(s)\n", page.Page, page.PageCount, page.Total)
	return err
}

func queryResponse(collection string, page *viewstate.Page, now time.Time) (*dexapi.QueryResponse, error) {
	hash, err := flatten.HashJSON(page.Records)
	if err != nil {
		return nil, fmt.Errorf("error hashing result: %w", err)
	}
	return &dexapi.QueryResponse{
		Collection: collection,
		Total:      page.Total,
		PageInfo: dexapi.PageInfo{
			Page:      page.Page,
			PageSize:  page.PageSize,
			PageCount: page.PageCount,
		},
		Records:     page.Records,
		ResultHash:  hash,
		GeneratedAt: dexapi.Timestamp{Value: now},
	}, nil
}

func writeJSON(w io.Writer, value interface{}) error {
	marshalled, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(marshalled); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
