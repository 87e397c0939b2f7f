package datasource

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/fixtures"
	"github.com/steinarvk/whizdex/lib/recquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() config.Limits {
	return config.Limits{
		MaxBytesPerRecord:       4096,
		MaxRecordsPerCollection: 100,
		MaxFieldsPerRecord:      100,
		CapturedValueLength:     1024,
	}
}

func TestFileSourceReadsJSONLines(t *testing.T) {
	fsys := fstest.MapFS{
		"payouts.jsonl": {Data: []byte(`{"id":"PO-1","vendor":{"name":"Fresh Foods Market"},"amount":10}

{"id":"PO-2","vendor":{"name":"Gadget Hub"},"amount":null}
`)},
	}

	records, err := NewFileSource(fsys, testLimits()).Records(context.Background(), "payouts")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, recquery.Record{"id": "PO-1", "vendor.name": "Fresh Foods Market", "amount": 10.0}, records[0])
	assert.Equal(t, "Gadget Hub", records[1]["vendor.name"])
	assert.Nil(t, records[1]["amount"])
}

func TestFileSourceAcceptsJSONLinesSuffix(t *testing.T) {
	fsys := fstest.MapFS{"tickets.jsonlines": {Data: []byte(`{"id":"T-1"}`)}}

	records, err := NewFileSource(fsys, testLimits()).Records(context.Background(), "tickets")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileSourceEmptyFile(t *testing.T) {
	fsys := fstest.MapFS{"refunds.jsonl": {Data: []byte("\n\n")}}

	records, err := NewFileSource(fsys, testLimits()).Records(context.Background(), "refunds")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFileSourceErrors(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"bad.jsonl":  {Data: []byte("{\"id\":\"ok\"}\nnot json\n")},
		"many.jsonl": {Data: []byte("{}\n{\"a\":1}\n{\"a\":2}\n")},
	}

	_, err := NewFileSource(fsys, testLimits()).Records(ctx, "missing")
	assert.Equal(t, dexerror.KindSource, dexerror.KindOf(err))

	_, err = NewFileSource(fsys, testLimits()).Records(ctx, "bad")
	require.Error(t, err)
	assert.Equal(t, dexerror.KindSource, dexerror.KindOf(err))
	assert.Contains(t, err.Error(), "bad.jsonl:2")

	limits := testLimits()
	limits.MaxRecordsPerCollection = 2
	_, err = NewFileSource(fsys, limits).Records(ctx, "many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 2 records")
}

func TestFileSourceIsDeterministic(t *testing.T) {
	fsys := fstest.MapFS{"users.jsonl": {Data: []byte(`{"name":"Asha"}` + "\n" + `{"name":"Ravi"}`)}}
	src := NewFileSource(fsys, testLimits())

	a, err := src.Records(context.Background(), "users")
	require.NoError(t, err)
	b, err := src.Records(context.Background(), "users")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0]["id"], a[1]["id"])
}

func TestFixturesMatchDeclarations(t *testing.T) {
	cfg, err := config.Parse(fixtures.CollectionsYAML)
	require.NoError(t, err)

	src := NewFixtureSource(cfg.Limits)
	for _, name := range cfg.CollectionNames() {
		coll, err := cfg.Collection(name)
		require.NoError(t, err)

		records, err := src.Records(context.Background(), coll.Source)
		require.NoError(t, err, name)
		assert.NotEmpty(t, records, name)

		orderBy, err := coll.DefaultOrderBy()
		require.NoError(t, err)
		_, err = recquery.Query(coll.Schema(), records, recquery.Params{Sort: orderBy.Sort()})
		require.NoError(t, err, name)
	}
}

func TestFixturePayoutsScenario(t *testing.T) {
	cfg, err := config.Parse(fixtures.CollectionsYAML)
	require.NoError(t, err)
	coll, err := cfg.Collection("vendor_payouts")
	require.NoError(t, err)

	records, err := NewFixtureSource(cfg.Limits).Records(context.Background(), coll.Source)
	require.NoError(t, err)

	got, err := recquery.Query(coll.Schema(), records, recquery.Params{SearchText: "fresh"})
	require.NoError(t, err)

	var names []interface{}
	for _, r := range got {
		names = append(names, r["vendor.name"])
	}
	assert.Equal(t, []interface{}{"Fresh Foods Market", "Freshly Baked Co"}, names)
}

func TestSQLSource(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "whizcart.sqlite3")

	seed, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE refunds (seq INTEGER PRIMARY KEY, record_data TEXT NOT NULL)`)
	require.NoError(t, err)
	for _, row := range []struct {
		seq  int
		data string
	}{
		{2, `{"id":"RF-2","status":"approved","amount":649}`},
		{1, `{"id":"RF-1","status":"Pending","amount":1299}`},
		{3, `{"id":"RF-3","status":"Approved","amount":180}`},
	} {
		_, err := seed.Exec(`INSERT INTO refunds (seq, record_data) VALUES (?, ?)`, row.seq, row.data)
		require.NoError(t, err)
	}
	require.NoError(t, seed.Close())

	src, err := OpenSQL(ctx, SQLParams{Driver: "sqlite3", DSN: dbPath}, testLimits())
	require.NoError(t, err)
	defer src.Close()

	records, err := src.Records(ctx, "refunds")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "RF-1", records[0]["id"])

	schema := recquery.Schema{
		Fields:  map[string]recquery.FieldType{"id": recquery.FieldString, "status": recquery.FieldString, "amount": recquery.FieldNumber},
		Filters: []string{"status"},
	}
	got, err := recquery.Query(schema, records, recquery.Params{Filters: map[string]string{"status": "APPROVED"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = src.Records(ctx, "refunds; DROP TABLE refunds")
	assert.True(t, dexerror.IsPrecondition(err))

	_, err = src.Records(ctx, "missing_table")
	assert.Equal(t, dexerror.KindSource, dexerror.KindOf(err))
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), SQLParams{Driver: "oracle"}, testLimits())
	assert.Equal(t, dexerror.KindConfig, dexerror.KindOf(err))
}
