package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

const goSource = `package sample

// Add returns the sum of two integers.
func Add(a, b int) int {
	return a + b
}

func helper() int {
	return 0
}
`

func TestChunkFile_DocumentedFunctionOnly(t *testing.T) {
	e := New()
	chunks, err := e.ChunkFile("pkg/sample.go", []byte(goSource), "file-1")
	require.NoError(t, err)

	// One doc chunk plus one code chunk for Add; nothing for helper.
	require.Len(t, chunks, 2)

	assert.Equal(t, types.DomainDocs, chunks[0].Domain)
	assert.Contains(t, chunks[0].Text, "Add")
	assert.Contains(t, chunks[0].Text, "sum of two integers")

	assert.Equal(t, types.DomainCode, chunks[1].Domain)
	assert.Contains(t, chunks[1].Text, "return a + b")

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, 2, c.TotalChunks)
		assert.Equal(t, "Add", c.Symbol)
		assert.Equal(t, "go", c.Language)
		assert.Equal(t, "file-1", c.FileID)
		assert.Greater(t, c.StartLine, 0)
	}
}

func TestChunkFile_MethodQualifiedName(t *testing.T) {
	src := `package sample

type Counter struct{ n int }

// Incr bumps the counter and returns the new value.
func (c *Counter) Incr() int {
	c.n++
	return c.n
}
`
	e := New()
	chunks, err := e.ChunkFile("counter.go", []byte(src), "file-2")
	require.NoError(t, err)

	var names []string
	for _, c := range chunks {
		names = append(names, c.Symbol)
	}
	assert.Contains(t, names, "Counter.Incr")
}

func TestChunkFile_DocumentedType(t *testing.T) {
	src := `package sample

// Config holds service settings.
type Config struct {
	Port int
}
`
	e := New()
	chunks, err := e.ChunkFile("config.go", []byte(src), "file-3")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Config", chunks[0].Symbol)
}

func TestChunkFile_FallbackModuleDoc(t *testing.T) {
	src := `// Package sample does sample things.
package sample

func undocumented() {}
`
	e := New()
	chunks, err := e.ChunkFile("doc.go", []byte(src), "file-4")
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, types.DomainDocs, chunks[0].Domain)
	assert.Contains(t, chunks[0].Text, "sample things")
	assert.Equal(t, 1, chunks[0].TotalChunks)
}

func TestChunkFile_FallbackPlaceholder(t *testing.T) {
	src := `package sample

var x = 1
`
	e := New()
	chunks, err := e.ChunkFile("vars.go", []byte(src), "file-5")
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "vars.go")
}

func TestChunkFile_UnsupportedExtension(t *testing.T) {
	e := New()
	_, err := e.ChunkFile("notes.md", []byte("# hi"), "file-6")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

const pySource = `"""
Sample module for docstring extraction.
"""

class Greeter:
    """A class that greets people."""

    def greet(self, name):
        """
        Greet someone by name.

        Returns:
            str: the greeting
        """
        return "hello " + name

    def _internal(self):
        return None


def area(w, h):
    """Compute the area of a rectangle."""
    return w * h


def undocumented(x):
    return x
`

func TestChunkFile_PythonSymbols(t *testing.T) {
	e := New()
	chunks, err := e.ChunkFile("sample.py", []byte(pySource), "file-7")
	require.NoError(t, err)

	// Greeter, Greeter.greet and area are documented: 3 doc chunks plus
	// 3 code chunks. _internal and undocumented contribute nothing.
	require.Len(t, chunks, 6)

	bySymbol := map[string][]types.Chunk{}
	for _, c := range chunks {
		bySymbol[c.Symbol] = append(bySymbol[c.Symbol], c)
		assert.Equal(t, "python", c.Language)
		assert.Equal(t, 6, c.TotalChunks)
	}

	require.Len(t, bySymbol["Greeter"], 2)
	require.Len(t, bySymbol["Greeter.greet"], 2)
	require.Len(t, bySymbol["area"], 2)

	greet := bySymbol["Greeter.greet"]
	assert.Equal(t, types.DomainDocs, greet[0].Domain)
	assert.Contains(t, greet[0].Text, "Greet someone by name.")
	assert.Equal(t, types.DomainCode, greet[1].Domain)
	assert.Contains(t, greet[1].Text, `return "hello " + name`)
}

func TestChunkFile_PythonModuleDocFallback(t *testing.T) {
	src := `"""Only a module docstring lives here."""

X = 1
`
	e := New()
	chunks, err := e.ChunkFile("consts.py", []byte(src), "file-8")
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Only a module docstring lives here.", chunks[0].Text)
}

func TestParsePython_BlockBoundaries(t *testing.T) {
	units := parsePython([]byte(pySource))

	require.Len(t, units.Symbols, 5)
	assert.Equal(t, "Sample module for docstring extraction.", units.ModuleDoc)

	greeter := units.Symbols[0]
	assert.Equal(t, types.KindClass, greeter.Kind)
	assert.Contains(t, greeter.Body, "_internal")

	area := units.Symbols[3]
	assert.Equal(t, types.KindFunction, area.Kind)
	assert.Equal(t, "", area.Parent)
	assert.NotContains(t, area.Body, "undocumented")
}

func TestSupported(t *testing.T) {
	e := New()
	assert.True(t, e.Supported(".go"))
	assert.True(t, e.Supported(".py"))
	assert.True(t, e.Supported(".PY"))
	assert.False(t, e.Supported(".md"))
	assert.False(t, e.Supported(""))
}
