package starlark

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func callBuiltin(t *testing.T, d starlark.StringDict, name string, args ...starlark.Value) (starlark.Value, error) {
	t.Helper()
	fn, ok := d[name]
	require.True(t, ok, "missing builtin %s", name)
	return starlark.Call(&starlark.Thread{Name: "test"}, fn, args, nil)
}

func TestSink_Builtins(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	b := sink.builtins()

	_, err := callBuiltin(t, b, "_emit", starlark.String("n="), starlark.MakeInt(3), starlark.None, starlark.String("\n"))
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "output is buffered until flushed")

	_, err = callBuiltin(t, b, "_flush")
	require.NoError(t, err)
	assert.Equal(t, "n=3\n", buf.String())
	assert.Equal(t, int64(4), sink.Written())
}

func TestSink_EmitRejectsKeywords(t *testing.T) {
	sink := NewSink(&bytes.Buffer{})
	fn := sink.builtins()["_emit"]
	_, err := starlark.Call(&starlark.Thread{}, fn, nil, []starlark.Tuple{{starlark.String("k"), starlark.None}})
	assert.Error(t, err)
}

func TestSink_FormatAndJoin(t *testing.T) {
	b := NewSink(&bytes.Buffer{}).builtins()

	v, err := callBuiltin(t, b, "_fmt", starlark.String("a"), starlark.MakeInt(1), starlark.String("\n"))
	require.NoError(t, err)
	assert.Equal(t, starlark.String("a1\n"), v)

	parts := starlark.NewList([]starlark.Value{starlark.String("x\n"), starlark.String("y\n")})
	v, err = callBuiltin(t, b, "_join", parts)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("x\ny"), v)

	v, err = callBuiltin(t, b, "_join", starlark.NewList(nil))
	require.NoError(t, err)
	assert.Equal(t, starlark.String(""), v)
}

func TestSink_ErrorsAreSticky(t *testing.T) {
	sink := NewSink(failingWriter{})

	require.NoError(t, sink.WriteString("buffered"))
	require.ErrorIs(t, sink.Flush(), errDiskFull)
	assert.ErrorIs(t, sink.WriteString("more"), errDiskFull)
	assert.ErrorIs(t, sink.Err(), errDiskFull)
}
