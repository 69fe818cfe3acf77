package explorer

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVHeader(t *testing.T) {
	docs := []map[string]any{
		{"_id": "1", "name": "ada", "address": map[string]any{"city": "london"}},
		{"_id": "2", "age": 36},
	}

	header := csvHeader(docs)

	assert.Equal(t, []string{"_id", "address.city", "age", "name"}, header)
}

func TestCSVHeader_NoID(t *testing.T) {
	docs := []map[string]any{
		{"b": 1, "a": 2},
	}
	assert.Equal(t, []string{"a", "b"}, csvHeader(docs))
}

func TestFlatten(t *testing.T) {
	flat := make(map[string]any)
	flatten("", map[string]any{
		"a": 1,
		"b": map[string]any{
			"c": "x",
			"d": map[string]any{"e": true},
		},
		"list": []any{1, 2},
	}, flat)

	assert.Equal(t, 1, flat["a"])
	assert.Equal(t, "x", flat["b.c"])
	assert.Equal(t, true, flat["b.d.e"])
	assert.Equal(t, []any{1, 2}, flat["list"], "arrays are kept whole")
}

func TestWriteCSV(t *testing.T) {
	docs := []map[string]any{
		{"_id": "1", "name": "ada", "tags": []any{"x", "y"}},
		{"_id": "2", "name": "grace", "age": int64(85)},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, docs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"_id", "age", "name", "tags"}, records[0])
	assert.Equal(t, []string{"1", "", "ada", `["x","y"]`}, records[1])
	assert.Equal(t, []string{"2", "85", "grace", ""}, records[2])
}

func TestCSVCell(t *testing.T) {
	assert.Equal(t, "", csvCell(nil))
	assert.Equal(t, "plain", csvCell("plain"))
	assert.Equal(t, "3.14", csvCell(3.14))
	assert.Equal(t, `[1,"two"]`, csvCell([]any{1, "two"}))
}
