package fsbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryReadWriteRoundTrip(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("pkg/greeter.py", []byte("print('hi')")))
	assert.True(t, d.Exists("pkg/greeter.py"))

	data, err := d.Read("pkg/greeter.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(data))
}

func TestDirectoryReadMissingFile(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	_, err = d.Read("nope.py")
	assert.Equal(t, ErrNotFound, err)
}

func TestDirectoryRejectsEscape(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	_, err = d.Read("../../etc/passwd")
	assert.Equal(t, ErrOutsideRoot, err)
}

func TestDirectoryListFiltersByPrefix(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("a/one.py", []byte("1")))
	require.NoError(t, d.Write("a/two.py", []byte("2")))
	require.NoError(t, d.Write("b/three.py", []byte("3")))

	names := d.List("a/")
	assert.ElementsMatch(t, []string{"a/one.py", "a/two.py"}, names)
}

func TestDirectoryDelete(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("f.py", []byte("x")))
	require.NoError(t, d.Delete("f.py"))
	assert.False(t, d.Exists("f.py"))
	assert.Equal(t, ErrNotFound, d.Delete("f.py"))
}

func TestDirectoryAccessedAt(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("f.py", []byte("x")))
	_, err = d.Read("f.py")
	require.NoError(t, err)

	accessed, err := d.AccessedAt("f.py")
	require.NoError(t, err)
	assert.False(t, accessed.IsZero())
}
