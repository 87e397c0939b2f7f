package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steinarvk/whizdex/lib/dexapi"
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/recquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payoutsYAML = `
collections:
  payouts:
    description: Vendor payouts
    fields:
      id: {type: string, search: true}
      vendor: {search: true}
      amount: {type: number}
      status: {type: string, filter: true}
      scheduled_for: {type: date}
    default_sort: "-scheduled_for"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(payoutsYAML))
	require.NoError(t, err)

	assert.Equal(t, 1024*1024, cfg.Limits.MaxBytesPerRecord)
	assert.Equal(t, 100000, cfg.Limits.MaxRecordsPerCollection)
	assert.Equal(t, []string{"payouts"}, cfg.CollectionNames())

	coll, err := cfg.Collection("payouts")
	require.NoError(t, err)
	assert.Equal(t, "payouts", coll.Name())
	assert.Equal(t, "payouts", coll.Source)

	assert.Equal(t, recquery.Schema{
		Name: "payouts",
		Fields: map[string]recquery.FieldType{
			"id":            recquery.FieldString,
			"vendor":        recquery.FieldString,
			"amount":        recquery.FieldNumber,
			"status":        recquery.FieldString,
			"scheduled_for": recquery.FieldDate,
		},
		Search:  []string{"id", "vendor"},
		Filters: []string{"status"},
	}, coll.Schema())

	orderBy, err := coll.DefaultOrderBy()
	require.NoError(t, err)
	assert.Equal(t, &dexapi.OrderBy{Field: "scheduled_for", Descending: true}, orderBy)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
collections:
  payouts:
    source: "payouts; drop table"
    fields:
      amount: {type: money}
    default_sort: "-missing"
  empty:
    fields: {}
`))
	require.Error(t, err)
	assert.Equal(t, dexerror.KindConfig, dexerror.KindOf(err))

	msg := err.Error()
	for _, want := range []string{
		`invalid source name "payouts; drop table"`,
		`field "amount" has unknown type "money"`,
		`default_sort names undeclared field "missing"`,
		`collection "empty"`,
		"no fields declared",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestNoCollections(t *testing.T) {
	_, err := Parse([]byte(`limits: {max_bytes_per_record: 10}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no collections configured")
}

func TestUnknownCollection(t *testing.T) {
	cfg, err := Parse([]byte(payoutsYAML))
	require.NoError(t, err)

	_, err = cfg.Collection("refunds")
	require.Error(t, err)
	assert.Equal(t, dexerror.KindConfig, dexerror.KindOf(err))
}

func TestLoadFileAndInline(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "collections.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(payoutsYAML), 0o644))

	cfg, err := Load(fn)
	require.NoError(t, err)
	assert.Contains(t, cfg.Collections, "payouts")

	cfg, err = Load(`{"collections": {"users": {"fields": {"name": {"search": true}}}}}`)
	require.NoError(t, err)
	users, err := cfg.Collection("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, users.Schema().Search)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLimitsFlattener(t *testing.T) {
	l := Limits{}
	require.NoError(t, l.setDefaults())
	f := l.Flattener()
	assert.Equal(t, 1024*1024, f.MaxSerializedLength)
	assert.Equal(t, 1000, f.MaxTotalFields)
}
