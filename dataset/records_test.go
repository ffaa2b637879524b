package dataset

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsKeepKeyOrder(t *testing.T) {
	var rows []Record
	payload := `[{"zeta": 1, "alpha": "a", "mid": null}, {"alpha": "b", "zeta": 2, "extra": true}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &rows))

	table, err := FromRecords(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "extra"}, table.Names())

	zeta, _ := table.Column("zeta")
	assert.Equal(t, Numeric, zeta.Kind)
	assert.Equal(t, []float64{1, 2}, zeta.Numbers)

	mid, _ := table.Column("mid")
	assert.Equal(t, 2, mid.MissingCount())

	extra, _ := table.Column("extra")
	assert.Equal(t, Categorical, extra.Kind)
	assert.True(t, extra.IsMissing(0))
	assert.Equal(t, "True", extra.Text(1))
}

func TestMixedColumnBecomesCategorical(t *testing.T) {
	var rows []Record
	require.NoError(t, json.Unmarshal([]byte(`[{"v": 1}, {"v": "two"}]`), &rows))

	table, err := FromRecords(rows)
	require.NoError(t, err)
	v, _ := table.Column("v")
	assert.Equal(t, Categorical, v.Kind)
	assert.Equal(t, []string{"1", "two"}, v.Strings)
}

func TestFromRecordsEmpty(t *testing.T) {
	_, err := FromRecords(nil)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestTableRecordsMarshal(t *testing.T) {
	table, err := NewTable(
		NewNumericColumn("b", []float64{1, 2}),
		NewCategoricalColumn("a", []string{"x", ""}, []bool{false, true}),
	)
	require.NoError(t, err)

	out, err := json.Marshal(table.Records())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"b":1,"a":"x"},{"b":2,"a":null}]`, string(out))
	assert.Equal(t, `[{"b":1,"a":"x"},{"b":2,"a":null}]`, string(out))
}
