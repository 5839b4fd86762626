package tabular

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
)

const irisCSV = "\uFEFFsepal,petal,species\n5.1,1.4,setosa\n4.9,,setosa\n7.0,4.7\n"

func TestLoadConvertsNumbersAndKeepsText(t *testing.T) {
	tbl, err := Load(strings.NewReader(irisCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"sepal", "petal", "species"}, tbl.Header)
	require.Len(t, tbl.Rows, 3)
	assert.True(t, tbl.Rows[0]["sepal"].IsNum())
	assert.Equal(t, 5.1, tbl.Rows[0]["sepal"].Float())
	assert.Equal(t, "setosa", tbl.Rows[0]["species"].String())
	assert.True(t, tbl.Rows[1]["petal"].IsBlank())

	_, ok := tbl.Rows[2]["species"]
	assert.False(t, ok, "short record must not carry trailing columns")
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNonFiniteCellsStayText(t *testing.T) {
	for _, cell := range []string{"NaN", "nan", "Inf", "-inf", "infinity", "1e999"} {
		v := Parse(cell)
		assert.False(t, v.IsNum(), cell)
		assert.Equal(t, cell, v.String())
	}
	assert.True(t, Parse(" 2.5 ").IsNum())

	tbl, err := Load(strings.NewReader("a,b\n1,x\nNaN,y\n3,z\n"))
	require.NoError(t, err)
	col, err := tbl.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, col)
}

func TestColumnSkipsText(t *testing.T) {
	tbl, err := Load(strings.NewReader(irisCSV))
	require.NoError(t, err)

	petal, err := tbl.Column("petal")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.4, 4.7}, petal)

	_, err = tbl.Column("missing")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, "Column 'missing' not found in the file.", err.Error())
}

func TestPreviewLimitsRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 30; i++ {
		b.WriteString("1,x\n")
	}
	header, data, err := Preview(strings.NewReader(b.String()), 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Len(t, data, 20)
	assert.Equal(t, map[string]string{"a": "1", "b": "x"}, data[0])
}

func TestCloneIsDeep(t *testing.T) {
	tbl, err := Load(strings.NewReader(irisCSV))
	require.NoError(t, err)
	c := tbl.Clone()
	c.Rows[0]["sepal"] = Num(0)
	assert.Equal(t, 5.1, tbl.Rows[0]["sepal"].Float())
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(Row{"n": Num(2), "s": Text("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2,"s":"x"}`, string(b))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"3.5"`), &v))
	assert.True(t, v.IsNum())
	assert.Equal(t, 3.5, v.Float())
}

func TestFormatFloatAndOrdering(t *testing.T) {
	assert.Equal(t, "5.0", FormatFloat(5))
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.True(t, Less(Num(10), Text("a")))
	assert.True(t, Less(Num(1), Num(2)))
	assert.True(t, Less(Text("a"), Text("b")))
}
