package value

// CompiledValue stands for a literal of a builtin type: strings, numbers,
// booleans and None. Equal literals compare as one value in sets.
type CompiledValue struct {
	className string
	payload   string
	known     bool
}

// NewStr builds a string value with known text.
func NewStr(text string) *CompiledValue {
	return &CompiledValue{className: "str", payload: text, known: true}
}

// NewStrUnknown builds a string value whose text is not statically known,
// e.g. an f-string.
func NewStrUnknown() *CompiledValue {
	return &CompiledValue{className: "str"}
}

// NewInt builds an integer value from its literal text.
func NewInt(text string) *CompiledValue {
	return &CompiledValue{className: "int", payload: text, known: true}
}

// NewFloat builds a float value from its literal text.
func NewFloat(text string) *CompiledValue {
	return &CompiledValue{className: "float", payload: text, known: true}
}

// NewBool builds True or False.
func NewBool(v bool) *CompiledValue {
	text := "False"
	if v {
		text = "True"
	}
	return &CompiledValue{className: "bool", payload: text, known: true}
}

// NewNone builds the None value.
func NewNone() *CompiledValue {
	return &CompiledValue{className: "NoneType", payload: "None", known: true}
}

func (c *CompiledValue) Kind() Kind {
	return KindCompiled
}

func (c *CompiledValue) Name() string {
	return c.className
}

func (c *CompiledValue) Context() *Context {
	return nil
}

func (c *CompiledValue) Class(s *Session) ValueSet {
	return s.BuiltinAttr(c.className)
}

func (c *CompiledValue) Call(s *Session, args Arguments) ValueSet {
	return NoValues
}

// Filters exposes the members of the literal's builtin class, so that
// "x".upper resolves like any instance attribute.
func (c *CompiledValue) Filters(s *Session, opts FilterOptions) []Filter {
	var out []Filter
	for _, cls := range c.Class(s).Values() {
		cv, ok := cls.(*ClassValue)
		if !ok {
			continue
		}
		for _, m := range cv.MRO(s) {
			if mc, ok := m.(*ClassValue); ok {
				out = append(out, newClassFilter(cv, mc, opts.OriginScope, true, c))
			}
		}
	}
	return out
}

// StrValue returns the literal text of a known string.
func (c *CompiledValue) StrValue() (string, bool) {
	if c.className != "str" || !c.known {
		return "", false
	}
	return c.payload, true
}

// Payload returns the literal text of the value.
func (c *CompiledValue) Payload() (string, bool) {
	return c.payload, c.known
}

func (c *CompiledValue) IdentityKey() any {
	return *c
}

// SequenceValue is a tuple, list, set or dict literal with lazily inferred
// elements.
type SequenceValue struct {
	kind  string
	elems []LazyValue
}

// NewSequence builds a sequence value of the given builtin kind.
func NewSequence(kind string, elems []LazyValue) *SequenceValue {
	return &SequenceValue{kind: kind, elems: elems}
}

func (v *SequenceValue) Kind() Kind {
	return KindCompiled
}

func (v *SequenceValue) Name() string {
	return v.kind
}

func (v *SequenceValue) Context() *Context {
	return nil
}

func (v *SequenceValue) Class(s *Session) ValueSet {
	return s.BuiltinAttr(v.kind)
}

func (v *SequenceValue) Call(s *Session, args Arguments) ValueSet {
	return NoValues
}

func (v *SequenceValue) Filters(s *Session, opts FilterOptions) []Filter {
	var out []Filter
	for _, cls := range v.Class(s).Values() {
		cv, ok := cls.(*ClassValue)
		if !ok {
			continue
		}
		for _, m := range cv.MRO(s) {
			if mc, ok := m.(*ClassValue); ok {
				out = append(out, newClassFilter(cv, mc, opts.OriginScope, true, v))
			}
		}
	}
	return out
}

// Iterate yields the sequence's elements.
func (v *SequenceValue) Iterate(s *Session) []LazyValue {
	return v.elems
}

// Len returns the number of syntactic elements.
func (v *SequenceValue) Len() int {
	return len(v.elems)
}
