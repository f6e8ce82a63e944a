package xpflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneOf(t *testing.T) {
	f := NewOneOf("none", "none", "zstd")
	require.Equal(t, "none", f.String())
	require.NoError(t, f.Set("zstd"))
	require.Equal(t, "zstd", f.String())
	require.Error(t, f.Set("gzip"))
	require.Equal(t, "zstd", f.String())
	require.Equal(t, "none, zstd", f.Variants())
}

func TestManyOf(t *testing.T) {
	f := NewManyOf("measure", "react-event", "frame")
	require.NoError(t, f.Set("measure,frame"))
	require.NoError(t, f.Set("measure"))
	require.NoError(t, f.Set(" react-event "))
	require.Equal(t, []string{"measure", "frame", "react-event"}, f.Values())
	require.Equal(t, "measure,frame,react-event", f.String())

	err := f.Set("frame,bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogus")
}
