package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyscope/internal/diag"
	"pyscope/internal/value"
)

func TestParseClinic(t *testing.T) {
	t.Run("Required and optional", func(t *testing.T) {
		params := parseClinic("object, name[, default], /")
		require.Len(t, params, 3)
		assert.Equal(t, "object", params[0].name)
		assert.False(t, params[0].optional)
		assert.Equal(t, "name", params[1].name)
		assert.False(t, params[1].optional)
		assert.Equal(t, "default", params[2].name)
		assert.True(t, params[2].optional)
	})

	t.Run("Star parameter", func(t *testing.T) {
		params := parseClinic("*items, /")
		require.Len(t, params, 1)
		assert.Equal(t, "items", params[0].name)
		assert.Equal(t, 1, params[0].star)
	})

	t.Run("Trailing optional group", func(t *testing.T) {
		params := parseClinic("typename, field_names[, rename, defaults, module]")
		require.Len(t, params, 5)
		assert.False(t, params[1].optional)
		assert.True(t, params[2].optional)
		assert.True(t, params[4].optional)
	})

	t.Run("Bracket glued to the preceding name", func(t *testing.T) {
		params := parseClinic("iterable[, default], /")
		require.Len(t, params, 2)
		assert.Equal(t, "iterable", params[0].name)
		assert.False(t, params[0].optional, "the bracket opens after this parameter")
		assert.Equal(t, "default", params[1].name)
		assert.True(t, params[1].optional)
	})
}

func TestBindClinic(t *testing.T) {
	s := value.NewSession(diag.Discard{}, nil)
	params := parseClinic("obj, name[, default], /")

	args := func(sets ...value.ValueSet) value.Arguments {
		return value.ValuesArguments(sets)
	}
	one := value.NewValueSet(value.NewInt("1"))
	two := value.NewValueSet(value.NewStr("x"))

	t.Run("Positional binding", func(t *testing.T) {
		bound, ok := bindClinic(s, params, args(one, two))
		require.True(t, ok)
		assert.Equal(t, 1, bound["obj"].Len())
		assert.Equal(t, 1, bound["name"].Len())
		_, hasDefault := bound["default"]
		assert.False(t, hasDefault)
	})

	t.Run("Optional filled", func(t *testing.T) {
		bound, ok := bindClinic(s, params, args(one, two, one))
		require.True(t, ok)
		_, hasDefault := bound["default"]
		assert.True(t, hasDefault)
	})

	t.Run("Missing required argument", func(t *testing.T) {
		_, ok := bindClinic(s, params, args(one))
		assert.False(t, ok)
	})

	t.Run("Too many arguments", func(t *testing.T) {
		_, ok := bindClinic(s, params, args(one, two, one, two))
		assert.False(t, ok)
	})

	t.Run("Star collects the rest", func(t *testing.T) {
		starred := parseClinic("first, *rest, /")
		bound, ok := bindClinic(s, starred, args(one, two, two))
		require.True(t, ok)
		assert.Equal(t, 1, bound["first"].Len())
		assert.Equal(t, 1, bound["rest"].Len(), "equal literals collapse")
	})

	t.Run("Unknown keyword rejects the call", func(t *testing.T) {
		unpackable := namedArgs{{Keyword: "bogus", Value: value.NewLazyKnownSet(one)}}
		_, ok := bindClinic(s, params, unpackable)
		assert.False(t, ok)
	})

	t.Run("Keyword binds by name", func(t *testing.T) {
		unpackable := namedArgs{
			{Value: value.NewLazyKnownSet(one)},
			{Keyword: "name", Value: value.NewLazyKnownSet(two)},
		}
		bound, ok := bindClinic(s, params, unpackable)
		require.True(t, ok)
		assert.Equal(t, 1, bound["name"].Len())
	})

	t.Run("Starred call arguments are never matched", func(t *testing.T) {
		unpackable := namedArgs{{Star: 1, Value: value.NewLazyKnownSet(one)}}
		_, ok := bindClinic(s, params, unpackable)
		assert.False(t, ok)
	})
}

// namedArgs is a test-only Arguments over explicit argument structs.
type namedArgs []value.Argument

func (a namedArgs) Unpack(*value.Session) []value.Argument {
	return a
}
