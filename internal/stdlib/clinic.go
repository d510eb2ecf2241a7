package stdlib

import (
	"strings"

	"pyscope/internal/value"
)

// clinicParam is one formal parameter of a patch declaration.
type clinicParam struct {
	name     string
	optional bool
	star     int
}

// parseClinic parses a compact parameter declaration such as
// "object, name[, default], /". Brackets mark optional parameters, a
// trailing "/" marks the preceding parameters positional-only and is
// otherwise ignored, and "*name" collects remaining positionals.
func parseClinic(spec string) []clinicParam {
	var out []clinicParam
	optional := false
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		for strings.HasPrefix(tok, "[") {
			optional = true
			tok = strings.TrimSpace(tok[1:])
		}
		for strings.HasSuffix(tok, "]") {
			tok = strings.TrimSpace(tok[:len(tok)-1])
		}
		// Splitting on commas leaves an opening bracket glued to the
		// preceding name ("name["): it applies to the parameters after it.
		opensGroup := false
		for strings.HasSuffix(tok, "[") {
			opensGroup = true
			tok = strings.TrimSpace(tok[:len(tok)-1])
		}
		if tok == "" || tok == "/" || tok == "*" {
			if opensGroup {
				optional = true
			}
			continue
		}
		p := clinicParam{optional: optional}
		for strings.HasPrefix(tok, "*") {
			p.star++
			tok = tok[1:]
		}
		p.name = tok
		out = append(out, p)
		if opensGroup {
			optional = true
		}
	}
	return out
}

// bindClinic matches a call's arguments against a clinic declaration. It
// returns false when the call does not fit, which makes the patch fall back
// to generic execution. Starred arguments in the call are never matched.
func bindClinic(s *value.Session, params []clinicParam, args value.Arguments) (map[string]value.ValueSet, bool) {
	bound := make(map[string]value.ValueSet, len(params))
	unpacked := args.Unpack(s)

	var positional []value.Argument
	for _, a := range unpacked {
		if a.Star != 0 {
			return nil, false
		}
		if a.Keyword == "" {
			positional = append(positional, a)
			continue
		}
		found := false
		for _, p := range params {
			if p.name == a.Keyword && p.star == 0 {
				bound[p.name] = a.Value.Infer(s)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	i := 0
	for _, p := range params {
		if p.star == 1 {
			rest := value.NoValues
			for ; i < len(positional); i++ {
				rest = rest.Union(positional[i].Value.Infer(s))
			}
			bound[p.name] = rest
			continue
		}
		if _, ok := bound[p.name]; ok {
			continue
		}
		if i < len(positional) {
			bound[p.name] = positional[i].Value.Infer(s)
			i++
			continue
		}
		if !p.optional {
			return nil, false
		}
	}
	if i < len(positional) {
		return nil, false
	}
	return bound, true
}
