package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainCore(t *testing.T) {
	input := `{"id":"VPO-301","vendor":{"id":"VEN-201","name":"Fresh Foods Market"},"settled_on":null}` + "\n\n"

	var out bytes.Buffer
	require.NoError(t, mainCore(strings.NewReader(input), &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "VPO-301\t"))
	assert.Equal(t, "id\tstring\tVPO-301", lines[1])
	assert.Equal(t, "settled_on\tnull", lines[2])
	assert.Equal(t, "vendor.id\tstring\tVEN-201", lines[3])
	assert.Equal(t, "vendor.name\tstring\tFresh Foods Market", lines[4])
}

func TestMainCoreReportsLine(t *testing.T) {
	var out bytes.Buffer
	err := mainCore(strings.NewReader("{\"id\":1}\n[1,2]\n"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
