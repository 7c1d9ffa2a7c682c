package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecorderWritesNumberedFiles(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil)
	require.NotNil(t, r)

	r.Request([]byte("71\x002\x00100\x00\x00"))
	r.Response([]byte("9\x001\x001\x00"))
	r.Request([]byte("49\x001\x00"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	data, err := os.ReadFile(filepath.Join(dir, "0001-request.msg"))
	require.NoError(t, err)
	require.Equal(t, []byte("71\x002\x00100\x00\x00"), data)

	_, err = os.Stat(filepath.Join(dir, "0002-response.msg"))
	require.NoError(t, err)
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.Request([]byte("x"))
		r.Response([]byte("y"))
	})
}

func TestNewDisabledWhenDirEmpty(t *testing.T) {
	require.Nil(t, New("", nil))
}
