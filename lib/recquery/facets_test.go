package recquery

import (
	"testing"

	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountByFoldsCase(t *testing.T) {
	records := []Record{
		{"id": "1", "status": "Scheduled"},
		{"id": "2", "status": "scheduled"},
		{"id": "3", "status": "Paid"},
		{"id": "4"},
		{"id": "5", "status": " "},
		{"id": "6", "status": "Failed"},
	}

	counts, err := CountBy(payoutSchema, records, "status")
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{
		{Value: "Failed", Count: 1},
		{Value: "Paid", Count: 1},
		{Value: "Scheduled", Count: 2},
	}, counts)

	values, err := DistinctValues(payoutSchema, records, "status")
	require.NoError(t, err)
	assert.Equal(t, []string{"Failed", "Paid", "Scheduled"}, values)
}

func TestCountByNumbers(t *testing.T) {
	counts, err := CountBy(payoutSchema, payouts(), "amount")
	require.NoError(t, err)
	assert.Contains(t, counts, ValueCount{Value: "860.5", Count: 2})
}

func TestCountByUnknownField(t *testing.T) {
	_, err := CountBy(payoutSchema, payouts(), "colour")
	assert.True(t, dexerror.IsPrecondition(err))

	_, err = DistinctValues(payoutSchema, nil, "colour")
	assert.True(t, dexerror.IsPrecondition(err))
}
