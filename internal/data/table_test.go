package data_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/data"
)

func newDict(t *testing.T, names ...string) *data.Table {
	t.Helper()
	tbl := &data.Table{}
	for i, n := range names {
		_, err := tbl.AddProperty(n, data.NewInt(int32(i)), -1)
		require.NoError(t, err)
	}
	return tbl
}

func TestTable_AddRemoveRoundTrip(t *testing.T) {
	tbl := newDict(t, "a", "b", "c")
	before := tbl.Clone(nil)

	_, err := tbl.AddProperty("inserted", data.NewString("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "inserted", "b", "c"}, tbl.PropertyNames())

	require.NoError(t, tbl.RemoveProperty(tbl.IndexOf("inserted")))
	assert.True(t, tbl.Equal(before))
	assert.Equal(t, before.Size(), tbl.Size())
}

func TestTable_AddPropertyErrors(t *testing.T) {
	tbl := newDict(t, "a")

	_, err := tbl.AddProperty("a", data.NewInt(0), -1)
	assert.ErrorIs(t, err, data.ErrDuplicateName)

	_, err = tbl.AddProperty("b", data.NewInt(0), 5)
	assert.ErrorIs(t, err, data.ErrOutOfRange)

	_, err = tbl.AddProperty("b", data.NewInt(0), -2)
	assert.ErrorIs(t, err, data.ErrOutOfRange)

	assert.Equal(t, 1, tbl.Size(), "failed inserts leave the table unchanged")

	_, err = tbl.AddProperty("", data.NewInt(0), -1)
	require.NoError(t, err)
	_, err = tbl.AddProperty("", data.NewInt(0), 0)
	require.NoError(t, err, "empty names may repeat")
	assert.Equal(t, 3, tbl.Size())
}

func TestTable_LookupAndGet(t *testing.T) {
	tbl := newDict(t, "a", "b")
	assert.Nil(t, tbl.Lookup("zz"))
	assert.Equal(t, -1, tbl.IndexOf("zz"))
	assert.Nil(t, tbl.At(9))

	_, err := tbl.Get(2)
	assert.ErrorIs(t, err, data.ErrOutOfRange)

	v, err := tbl.Get(1)
	require.NoError(t, err)
	assert.Same(t, tbl.Lookup("b"), v)
}

func TestTable_RenameSwapReplace(t *testing.T) {
	tbl := newDict(t, "a", "b", "c")

	require.NoError(t, tbl.RenameProperty("b", "beta"))
	assert.ErrorIs(t, tbl.RenameProperty("beta", "a"), data.ErrDuplicateName)
	assert.ErrorIs(t, tbl.RenameProperty("nope", "x"), data.ErrOutOfRange)

	require.NoError(t, tbl.SwapProperties(0, 2))
	assert.Equal(t, []string{"c", "beta", "a"}, tbl.PropertyNames())
	assert.ErrorIs(t, tbl.SwapProperties(0, 3), data.ErrOutOfRange)

	old, err := tbl.ReplaceProperty(1, data.NewString("new"))
	require.NoError(t, err)
	n, err := old.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)
	assert.Equal(t, "beta", tbl.NameAt(1))
	assert.Equal(t, data.KindString, tbl.At(1).Kind())

	require.NoError(t, tbl.RemoveNamed("a"))
	assert.ErrorIs(t, tbl.RemoveNamed("a"), data.ErrOutOfRange)

	tbl.Clear()
	assert.Zero(t, tbl.Size())
}

func TestTable_ResizeAndVectors(t *testing.T) {
	tbl := &data.Table{}
	data.Set(tbl, []float64{1, 2, 3})

	got, err := data.AsSlice[float64](tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.True(t, data.CompareSlice(tbl, []float64{1, 2, 3}))
	assert.False(t, data.CompareSlice(tbl, []float64{1, 2}))

	_, err = data.AsSlice[string](tbl)
	assert.ErrorIs(t, err, data.ErrTypeMismatch)

	require.NoError(t, tbl.Resize(5, data.NewDouble(0)))
	got, err = data.AsSlice[float64](tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, got)

	require.NoError(t, tbl.Resize(2, data.NewDouble(0)))
	assert.Equal(t, 2, tbl.Size())

	err = tbl.Resize(4, data.NewString(""))
	assert.ErrorIs(t, err, data.ErrTypeMismatch)
	assert.Equal(t, 2, tbl.Size())
}

func TestTable_CompareIsOrderSensitive(t *testing.T) {
	a := newDict(t, "x", "y")
	b := newDict(t, "x", "y")
	assert.True(t, a.Equal(b))

	require.NoError(t, b.SwapProperties(0, 1))
	assert.False(t, a.Equal(b))

	var empty *data.Table
	assert.True(t, empty.Equal(&data.Table{}))
}
