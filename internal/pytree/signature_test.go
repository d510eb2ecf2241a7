package pytree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSignature(t *testing.T) {
	t.Run("Function definition", func(t *testing.T) {
		tree := mustParse(t, "def add(a, b=1):\n    pass\n")
		def := tree.Root().NamedChild(0)
		assert.Equal(t, "add(a, b=1)", CallSignature(def, tree.Source, 80))
	})

	t.Run("Folds at spaces when too wide", func(t *testing.T) {
		tree := mustParse(t, "def add(a, b=1):\n    pass\n")
		def := tree.Root().NamedChild(0)
		assert.Equal(t, "add(a,\nb=1)", CallSignature(def, tree.Source, 6))
	})

	t.Run("Lambda", func(t *testing.T) {
		tree := mustParse(t, "f = lambda x: x\n")
		assign := tree.Root().NamedChild(0).NamedChild(0)
		lambda := assign.ChildByFieldName("right")
		require.Equal(t, "lambda", lambda.Type())
		assert.Equal(t, "<lambda>(x)", CallSignature(lambda, tree.Source, 80))
	})

	t.Run("Non-callable node", func(t *testing.T) {
		tree := mustParse(t, "x = 1\n")
		assert.Equal(t, "", CallSignature(tree.Root().NamedChild(0), tree.Source, 80))
	})
}

func TestDocstring(t *testing.T) {
	t.Run("Function docstring is dedented", func(t *testing.T) {
		source := "def f():\n    \"\"\"First line.\n\n    Indented body.\n    \"\"\"\n    return 1\n"
		tree := mustParse(t, source)
		def := tree.Root().NamedChild(0)
		assert.Equal(t, "First line.\n\nIndented body.", Docstring(def, tree.Source))
	})

	t.Run("Module docstring", func(t *testing.T) {
		tree := mustParse(t, "\"\"\"Top.\"\"\"\nx = 1\n")
		assert.Equal(t, "Top.", Docstring(tree.Root(), tree.Source))
	})

	t.Run("Leading comments are skipped", func(t *testing.T) {
		tree := mustParse(t, "# header\n\"\"\"Doc.\"\"\"\n")
		assert.Equal(t, "Doc.", Docstring(tree.Root(), tree.Source))
	})

	t.Run("No docstring", func(t *testing.T) {
		tree := mustParse(t, "def f():\n    return 1\n")
		assert.Equal(t, "", Docstring(tree.Root().NamedChild(0), tree.Source))
	})

	t.Run("Formatted strings are not docstrings", func(t *testing.T) {
		tree := mustParse(t, "def f():\n    f\"nope {x}\"\n")
		assert.Equal(t, "", Docstring(tree.Root().NamedChild(0), tree.Source))
	})
}

func TestDecodeString(t *testing.T) {
	decode := func(t *testing.T, source string) (string, bool) {
		t.Helper()
		tree := mustParse(t, "x = "+source+"\n")
		assign := tree.Root().NamedChild(0).NamedChild(0)
		return DecodeString(assign.ChildByFieldName("right"), tree.Source)
	}

	t.Run("Plain quotes", func(t *testing.T) {
		text, ok := decode(t, `"hello"`)
		require.True(t, ok)
		assert.Equal(t, "hello", text)
	})

	t.Run("Single quotes", func(t *testing.T) {
		text, ok := decode(t, `'hi'`)
		require.True(t, ok)
		assert.Equal(t, "hi", text)
	})

	t.Run("Raw prefix is stripped", func(t *testing.T) {
		text, ok := decode(t, `r'C:\tmp'`)
		require.True(t, ok)
		assert.Equal(t, `C:\tmp`, text)
	})

	t.Run("Triple quotes", func(t *testing.T) {
		text, ok := decode(t, `"""multi"""`)
		require.True(t, ok)
		assert.Equal(t, "multi", text)
	})

	t.Run("F-strings have no static value", func(t *testing.T) {
		_, ok := decode(t, `f"val {x}"`)
		assert.False(t, ok)
	})

	t.Run("StringLiteralValue rejects non-strings", func(t *testing.T) {
		tree := mustParse(t, "x = 42\n")
		assign := tree.Root().NamedChild(0).NamedChild(0)
		_, ok := StringLiteralValue(assign.ChildByFieldName("right"), tree.Source)
		assert.False(t, ok)
	})
}

func TestDedent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"Single line", "  only line  ", "only line"},
		{"Common margin removed", "First.\n    a\n      b", "First.\na\n  b"},
		{"Blank lines ignored for margin", "Top\n\n    body", "Top\n\nbody"},
		{"Empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Dedent(tc.in))
		})
	}
}

func TestParams(t *testing.T) {
	source := "def f(a, b: int, c=1, d: str = \"x\", *args, **kw):\n    pass\n"
	tree := mustParse(t, source)
	def := tree.Root().NamedChild(0)

	params := Params(def, tree.Source)
	require.Len(t, params, 6)

	assert.Equal(t, "a", params[0].Name)
	assert.Nil(t, params[0].Annotation)
	assert.Nil(t, params[0].Default)

	assert.Equal(t, "b", params[1].Name)
	require.NotNil(t, params[1].Annotation)
	assert.Equal(t, "int", params[1].Annotation.Content(tree.Source))

	assert.Equal(t, "c", params[2].Name)
	require.NotNil(t, params[2].Default)
	assert.Equal(t, "1", params[2].Default.Content(tree.Source))

	assert.Equal(t, "d", params[3].Name)
	assert.NotNil(t, params[3].Annotation)
	assert.NotNil(t, params[3].Default)

	assert.Equal(t, "args", params[4].Name)
	assert.Equal(t, 1, params[4].Star)

	assert.Equal(t, "kw", params[5].Name)
	assert.Equal(t, 2, params[5].Star)

	t.Run("Lambda parameters", func(t *testing.T) {
		lt := mustParse(t, "f = lambda x, y=2: x\n")
		assign := lt.Root().NamedChild(0).NamedChild(0)
		lambda := assign.ChildByFieldName("right")
		got := Params(lambda, lt.Source)
		require.Len(t, got, 2)
		assert.Equal(t, "x", got[0].Name)
		assert.Equal(t, "y", got[1].Name)
		require.NotNil(t, got[1].Default)
		assert.Equal(t, "2", got[1].Default.Content(lt.Source))
	})
}
