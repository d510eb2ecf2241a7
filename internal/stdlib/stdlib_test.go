package stdlib

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyscope/internal/diag"
	"pyscope/internal/registry"
	"pyscope/internal/value"
)

// patchedModule loads source as module "main" in a session with the patches
// installed.
func patchedModule(t *testing.T, source string) (*value.Session, *value.ModuleValue) {
	t.Helper()
	reg := registry.New()
	s := value.NewSession(diag.Discard{}, reg)
	Install(s)
	builtins, ok := reg.Builtins()
	require.True(t, ok)
	s.SetBuiltins(builtins)

	mod, err := reg.AddSource("main", "main.py", []byte(source))
	require.NoError(t, err)
	return s, mod
}

func names(set value.ValueSet) []string {
	out := make([]string, 0, set.Len())
	for _, v := range set.Values() {
		out = append(out, v.Name())
	}
	sort.Strings(out)
	return out
}

func payloads(set value.ValueSet) []string {
	var out []string
	for _, v := range set.Values() {
		if c, ok := v.(*value.CompiledValue); ok {
			if p, known := c.Payload(); known {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

func TestGetattr(t *testing.T) {
	s, mod := patchedModule(t, `
class A:
    val = 1

name = f"v{1}"

x = getattr(A, "val")
y = getattr(A, "missing", "fallback")
dyn = getattr(A, name)
`)

	t.Run("Known name resolves the attribute", func(t *testing.T) {
		assert.Equal(t, []string{"int"}, names(mod.Attribute(s, "x")))
	})

	t.Run("Unresolved name yields the default", func(t *testing.T) {
		got := mod.Attribute(s, "y")
		assert.Equal(t, []string{"str"}, names(got))
		assert.Equal(t, []string{"fallback"}, payloads(got))
	})

	t.Run("A dynamic name yields nothing", func(t *testing.T) {
		assert.True(t, mod.Attribute(s, "dyn").IsEmpty())
	})
}

func TestTypeOf(t *testing.T) {
	s, mod := patchedModule(t, `
class A:
    pass

a = A()
cls = type(a)
builtin_cls = type(1)
`)

	t.Run("Instance reports its class", func(t *testing.T) {
		got := mod.Attribute(s, "cls")
		require.Equal(t, 1, got.Len())
		v, _ := got.First()
		assert.Equal(t, value.KindClass, v.Kind())
		assert.Equal(t, "A", v.Name())
	})

	t.Run("Literal reports its builtin class", func(t *testing.T) {
		got := mod.Attribute(s, "builtin_cls")
		assert.Equal(t, []string{"int"}, names(got))
		v, _ := got.First()
		assert.Equal(t, value.KindClass, v.Kind())
	})
}

func TestSuper(t *testing.T) {
	s, mod := patchedModule(t, `
class Base:
    def ping(self) -> str: ...

class Child(Base):
    def ping(self):
        return super().ping()

c = Child()
r = c.ping()
`)

	got := mod.Attribute(s, "r")
	assert.Equal(t, []string{"str"}, names(got))
}

func TestIsinstance(t *testing.T) {
	s, mod := patchedModule(t, `
class A:
    pass

class B(A):
    pass

b = B()
hit = isinstance(b, A)
miss = isinstance(b, str)
tupled = isinstance(b, (A, str))
`)

	t.Run("Subclass instance matches", func(t *testing.T) {
		assert.Equal(t, []string{"True"}, payloads(mod.Attribute(s, "hit")))
	})

	t.Run("Unrelated class never matches", func(t *testing.T) {
		assert.Equal(t, []string{"False"}, payloads(mod.Attribute(s, "miss")))
	})

	t.Run("Tuple of classes is expanded", func(t *testing.T) {
		assert.Equal(t, []string{"True"}, payloads(mod.Attribute(s, "tupled")))
	})

	t.Run("Non-class second argument is reported", func(t *testing.T) {
		sink := &diag.Collector{}
		reg := registry.New()
		s := value.NewSession(sink, reg)
		Install(s)
		builtins, ok := reg.Builtins()
		require.True(t, ok)
		s.SetBuiltins(builtins)

		mod, err := reg.AddSource("main", "main.py", []byte("bad = isinstance(1, 42)\n"))
		require.NoError(t, err)

		mod.Attribute(s, "bad")
		require.NotEmpty(t, sink.Diagnostics)
		d := sink.Diagnostics[0]
		assert.Equal(t, "type-error-isinstance", d.Kind)
		assert.Equal(t, 1, d.Line)
		assert.Contains(t, d.Message, "int")
	})
}

func TestStaticAndClassMethods(t *testing.T) {
	s, mod := patchedModule(t, `
class Util:
    @staticmethod
    def make() -> int: ...

    @classmethod
    def create(cls) -> str: ...

x = Util.make()
y = Util.create()
u = Util()
z = u.make()
`)

	t.Run("staticmethod hands the function back unbound", func(t *testing.T) {
		assert.Equal(t, []string{"int"}, names(mod.Attribute(s, "x")))
	})

	t.Run("classmethod binds the class", func(t *testing.T) {
		assert.Equal(t, []string{"str"}, names(mod.Attribute(s, "y")))
	})

	t.Run("staticmethod works through instances too", func(t *testing.T) {
		assert.Equal(t, []string{"int"}, names(mod.Attribute(s, "z")))
	})
}

func TestProperty(t *testing.T) {
	s, mod := patchedModule(t, `
class Temp:
    @property
    def celsius(self) -> float: ...

t = Temp()
reading = t.celsius
on_class = Temp.celsius
`)

	t.Run("Instance access runs the getter", func(t *testing.T) {
		got := mod.Attribute(s, "reading")
		assert.Equal(t, []string{"float"}, names(got))
	})

	t.Run("Class access yields the property object", func(t *testing.T) {
		got := mod.Attribute(s, "on_class")
		assert.Equal(t, []string{"property"}, names(got))
	})
}

func TestPartial(t *testing.T) {
	s, mod := patchedModule(t, `
from functools import partial

def f(a, b, c):
    return a

g = partial(f, 1, c=9)
`)

	got := mod.Attribute(s, "g")
	require.Equal(t, 1, got.Len())
	v, _ := got.First()
	sp, ok := v.(value.SignatureProvider)
	require.True(t, ok)

	sigs := sp.Signatures(s)
	require.Len(t, sigs, 1)
	assert.Equal(t, "f(b)", sigs[0].String(), "one positional and one keyword are consumed")
}

func TestWraps(t *testing.T) {
	s, mod := patchedModule(t, `
from functools import wraps

def original(a, b) -> int: ...

@wraps(original)
def other(*args):
    return original(1, 2)

result = other()
`)

	t.Run("Wrapper carries the original identity", func(t *testing.T) {
		v, ok := mod.Attribute(s, "other").First()
		require.True(t, ok)
		assert.Equal(t, "original", v.Name())

		sp, ok := v.(value.SignatureProvider)
		require.True(t, ok)
		sigs := sp.Signatures(s)
		require.Len(t, sigs, 1)
		assert.Equal(t, "original(a, b)", sigs[0].String())
	})

	t.Run("Calls still run the decorated body", func(t *testing.T) {
		assert.Equal(t, []string{"int"}, names(mod.Attribute(s, "result")))
	})
}

func TestNamedtuple(t *testing.T) {
	s, mod := patchedModule(t, `
from collections import namedtuple

Point = namedtuple("Point", "x y")
Pair = namedtuple("Pair", ["left", "right"])
p = Point(1, 2)
`)

	t.Run("Factory yields a class", func(t *testing.T) {
		v, ok := mod.Attribute(s, "Point").First()
		require.True(t, ok)
		assert.Equal(t, value.KindClass, v.Kind())
		assert.Equal(t, "Point", v.Name())

		cl, ok := v.(value.ClassLike)
		require.True(t, ok)
		var mro []string
		for _, m := range cl.MRO(s) {
			mro = append(mro, m.Name())
		}
		assert.Equal(t, []string{"Point", "tuple", "object"}, mro)
	})

	t.Run("Constructor signature lists the fields", func(t *testing.T) {
		v, _ := mod.Attribute(s, "Point").First()
		sp, ok := v.(value.SignatureProvider)
		require.True(t, ok)
		sigs := sp.Signatures(s)
		require.Len(t, sigs, 1)
		assert.Equal(t, "Point(x, y)", sigs[0].String())
	})

	t.Run("Sequence field spelling", func(t *testing.T) {
		v, ok := mod.Attribute(s, "Pair").First()
		require.True(t, ok)
		sp := v.(value.SignatureProvider)
		sigs := sp.Signatures(s)
		require.Len(t, sigs, 1)
		assert.Equal(t, "Pair(left, right)", sigs[0].String())
	})

	t.Run("Instances expose the fields", func(t *testing.T) {
		got := mod.Attribute(s, "p").Attribute(s, "x")
		assert.False(t, got.IsEmpty())
	})
}

func TestItemgetter(t *testing.T) {
	s, mod := patchedModule(t, `
from operator import itemgetter

get = itemgetter(0)
v = get(("a", 1))
`)

	assert.Equal(t, []string{"int", "str"}, names(mod.Attribute(s, "v")))
}

func TestReversedAndNext(t *testing.T) {
	s, mod := patchedModule(t, `
items = [1, "two"]
it = reversed(items)
head = next(it)
missing = next(object(), "default")
`)

	t.Run("reversed keeps the elements", func(t *testing.T) {
		v, ok := mod.Attribute(s, "it").First()
		require.True(t, ok)
		_, iterable := v.(value.Iterable)
		assert.True(t, iterable)
	})

	t.Run("next unions the elements", func(t *testing.T) {
		assert.Equal(t, []string{"int", "str"}, names(mod.Attribute(s, "head")))
	})

	t.Run("next falls back to the default", func(t *testing.T) {
		got := mod.Attribute(s, "missing")
		assert.Equal(t, []string{"default"}, payloads(got))
	})
}

func TestIterProtocol(t *testing.T) {
	s, mod := patchedModule(t, `
class Cursor:
    def __next__(self) -> int: ...

class Table:
    def __iter__(self) -> Cursor: ...

t = Table()
row = next(iter(t))
`)

	assert.Equal(t, []string{"int"}, names(mod.Attribute(s, "row")))
}

func TestPathOperations(t *testing.T) {
	s, mod := patchedModule(t, `
import os

full = os.path.join("/usr", "lib", "python")
rooted = os.path.join("a", "/b")
parent = os.path.dirname("/a/b.py")
top = os.path.dirname("name")
clean = os.path.abspath("/a/../b")
rel = os.path.relpath("/a/b/c", "/a")

def which(name):
    return os.path.join("/usr/bin", name)

dynamic = which("ls")
`)

	t.Run("join concatenates known literals", func(t *testing.T) {
		assert.Equal(t, []string{"/usr/lib/python"}, payloads(mod.Attribute(s, "full")))
	})

	t.Run("An absolute segment restarts the path", func(t *testing.T) {
		assert.Equal(t, []string{"/b"}, payloads(mod.Attribute(s, "rooted")))
	})

	t.Run("dirname", func(t *testing.T) {
		assert.Equal(t, []string{"/a"}, payloads(mod.Attribute(s, "parent")))
		assert.Equal(t, []string{""}, payloads(mod.Attribute(s, "top")))
	})

	t.Run("abspath cleans absolute paths", func(t *testing.T) {
		assert.Equal(t, []string{"/b"}, payloads(mod.Attribute(s, "clean")))
	})

	t.Run("relpath", func(t *testing.T) {
		assert.Equal(t, []string{"b/c"}, payloads(mod.Attribute(s, "rel")))
	})

	t.Run("Unknown segments fall back to the stub", func(t *testing.T) {
		got := mod.Attribute(s, "dynamic")
		assert.Equal(t, []string{"str"}, names(got))
		assert.Empty(t, payloads(got), "the text is not statically known")
	})

	t.Run("Ambiguous segments fall back", func(t *testing.T) {
		s2, mod2 := patchedModule(t, `
import os

if flag:
    seg = "x"
else:
    seg = "y"

joined = os.path.join("base", seg)
`)
		got := mod2.Attribute(s2, "joined")
		assert.Equal(t, []string{"str"}, names(got))
		assert.Empty(t, payloads(got), "a segment with two possible values must not be joined")
	})
}

func TestEnumMembers(t *testing.T) {
	s, mod := patchedModule(t, `
from enum import Enum

class Color(Enum):
    RED = 1
    GREEN = 2

    def describe(self) -> str: ...

r = Color.RED
n = Color.RED.name
`)

	t.Run("Members are instances of the enum class", func(t *testing.T) {
		got := mod.Attribute(s, "r")
		require.Equal(t, 1, got.Len())
		v, _ := got.First()
		assert.Equal(t, value.KindInstance, v.Kind())
		assert.Equal(t, "Color", v.Name())
	})

	t.Run("The name property is a string", func(t *testing.T) {
		assert.Equal(t, []string{"str"}, names(mod.Attribute(s, "n")))
	})

	t.Run("Underscored and callable names are not members", func(t *testing.T) {
		cls, ok := mod.Attribute(s, "Color").First()
		require.True(t, ok)
		cv, ok := cls.(*value.ClassValue)
		require.True(t, ok)

		member := &enumMemberFilter{class: cv}
		keys := map[string]bool{}
		for _, n := range member.Values(s) {
			keys[n.Key] = true
		}
		assert.True(t, keys["RED"])
		assert.True(t, keys["GREEN"])
		assert.False(t, keys["describe"])
	})
}

func TestDataclass(t *testing.T) {
	s, mod := patchedModule(t, `
from dataclasses import dataclass

@dataclass
class Point:
    x: int
    y: int = 0

@dataclass(frozen=True)
class Frozen:
    label: str
`)

	t.Run("Synthesized constructor signature", func(t *testing.T) {
		v, ok := mod.Attribute(s, "Point").First()
		require.True(t, ok)
		sp, ok := v.(value.SignatureProvider)
		require.True(t, ok)
		sigs := sp.Signatures(s)
		require.Len(t, sigs, 1)
		assert.Equal(t, "Point(x: int, y: int=0)", sigs[0].String())
	})

	t.Run("Options form decorates on the second call", func(t *testing.T) {
		v, ok := mod.Attribute(s, "Frozen").First()
		require.True(t, ok)
		sp, ok := v.(value.SignatureProvider)
		require.True(t, ok)
		sigs := sp.Signatures(s)
		require.Len(t, sigs, 1)
		assert.Equal(t, "Frozen(label: str)", sigs[0].String())
	})
}

func TestIdentityPatches(t *testing.T) {
	s, mod := patchedModule(t, `
from copy import deepcopy
import random

data = [1, 2]
copied = deepcopy(data)
picked = random.choice(["a", "b"])
`)

	t.Run("deepcopy preserves the value", func(t *testing.T) {
		assert.Equal(t, []string{"list"}, names(mod.Attribute(s, "copied")))
	})

	t.Run("random.choice unions the elements", func(t *testing.T) {
		assert.Equal(t, []string{"str", "str"}, names(mod.Attribute(s, "picked")))
	})
}
