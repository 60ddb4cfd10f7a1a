package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSortedBuiltin(t *testing.T) {
	v, _, err := Run("sorted([3, 1, 2])", NewContext())
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3]", v.String())
}

func TestRunAugmentedAssignment(t *testing.T) {
	v, _, err := Run("x = 10\nx += 5\nx", NewContext())
	require.NoError(t, err)
	assert.Equal(t, "15", v.String())

	v, _, err = Run("x = [1,2]\nx += [3,4]\nx", NewContext())
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3, 4]", v.String())
}

func TestRunDiamondInheritanceMRO(t *testing.T) {
	src := `
class A:
    def method(self):
        return "A"

class B(A):
    pass

class C(A):
    def method(self):
        return "C"

class D(B, C):
    pass

D().method()
`
	v, _, err := Run(src, NewContext())
	require.NoError(t, err)
	assert.Equal(t, "C", v.String())
}

func TestRunGeneratorProducesValues(t *testing.T) {
	src := `
def g():
    yield 1
    yield 2

list(g())
`
	v, _, err := Run(src, NewContext())
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", v.String())
}

func TestRunGeneratorExpressionSum(t *testing.T) {
	v, _, err := Run("sum(x*x for x in range(5))", NewContext())
	require.NoError(t, err)
	assert.Equal(t, "30", v.String())
}

func TestRunTimeoutExceeded(t *testing.T) {
	ctx := NewContext().WithTimeout(50 * time.Millisecond)
	_, _, err := Run("while True:\n  x = 1", ctx)
	require.Error(t, err)
	runErr, ok := err.(*RunError)
	require.True(t, ok)
	assert.Equal(t, ErrTimeout, runErr.Kind)
	assert.Contains(t, runErr.Message, "execution exceeded time limit")
}

func TestRunCapabilityDenied(t *testing.T) {
	_, _, err := Run("import requests\nrequests.get('http://x')", NewContext())
	require.Error(t, err)
	runErr, ok := err.(*RunError)
	require.True(t, ok)
	assert.Equal(t, ErrPython, runErr.Kind)
	assert.Contains(t, runErr.Message, "network access is disabled")

	v, _, err := Run("import requests\n'get' in requests", NewContext())
	require.NoError(t, err)
	assert.Equal(t, "True", v.String())
}

func TestRunFilesystemImportCachedAcrossReimport(t *testing.T) {
	fs := NewMemFilesystem()
	require.NoError(t, fs.Write("greeter.py", []byte("print('module loaded')\ndef hello():\n    return 'hi'\n")))
	ctx := NewContext()
	ctx.Filesystem = fs
	src := "import greeter\nimport greeter\nNone"
	_, ctx, err := Run(src, ctx)
	require.NoError(t, err)
	out := ctx.Output()
	assert.Equal(t, 1, countOccurrences(out, "module loaded"))
}

func TestRunMatchStatement(t *testing.T) {
	src := `
x = 15
match x:
    case n if n < 10:
        result = "s"
    case n if n < 20:
        result = "m"
    case _:
        result = "l"
result
`
	v, _, err := Run(src, NewContext())
	require.NoError(t, err)
	assert.Equal(t, "m", v.String())
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
